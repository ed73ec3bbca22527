package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedHasAllLocales(t *testing.T) {
	dict, err := LoadEmbedded()
	require.NoError(t, err)
	assert.Equal(t, []Locale{English, Pashto, Persian}, dict.Locales())

	v, ok := dict.Lookup(Persian, "contact.btnSend")
	require.True(t, ok)
	assert.Equal(t, "ارسال", v)

	v, ok = dict.Lookup(English, "section.contact.title")
	require.True(t, ok)
	assert.Equal(t, "Contact", v)
}

func TestEmbeddedDictionaryKeyParity(t *testing.T) {
	dict, err := LoadEmbedded()
	require.NoError(t, err)
	assert.Empty(t, dict.MissingKeys(), "every locale should expose the same dotted paths")
	assert.NotEmpty(t, dict.Keys(English))
}

func TestLoadRequiresDefaultLocale(t *testing.T) {
	fsys := fstest.MapFS{"fa.yaml": {Data: []byte("a: b\n")}}
	_, err := Load(fsys)
	require.Error(t, err)
}

func TestLoadToleratesMissingSecondaryLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte("contact:\n  btnSend: Send\n")},
	}
	dict, err := Load(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Locale{English}, dict.Locales())
	_, ok := dict.Lookup(Pashto, "contact.btnSend")
	assert.False(t, ok)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	fsys := fstest.MapFS{"en.yaml": {Data: []byte("a: [unterminated\n")}}
	_, err := Load(fsys)
	require.Error(t, err)
}

func TestLookupMisses(t *testing.T) {
	dict := NewDictionary(map[Locale]map[string]any{
		English: {
			"contact": map[string]any{"btnSend": "Send", "count": 3},
			"skip":    "Skip to content",
		},
	})
	cases := []string{
		"",
		"contact",
		"contact.count",
		"contact.missing",
		"skip.deeper",
		"contact.btnSend.deeper",
		"nope.nope",
		".",
		"contact.",
	}
	for _, key := range cases {
		v, ok := dict.Lookup(English, key)
		assert.False(t, ok, "key %q", key)
		assert.Empty(t, v)
	}
	_, ok := dict.Lookup(Locale("de"), "skip")
	assert.False(t, ok)

	var nilDict *Dictionary
	_, ok = nilDict.Lookup(English, "skip")
	assert.False(t, ok)
}

func TestMissingKeysReportsGaps(t *testing.T) {
	dict := NewDictionary(map[Locale]map[string]any{
		English: {"proj4": map[string]any{"desc": "Portfolio"}, "skip": "Skip"},
		Pashto:  {"skip": "ولاړ شئ"},
		Persian: {"proj4": map[string]any{"desc": "پورتفولیو"}, "skip": "پرش", "extra": "x"},
	})
	missing := dict.MissingKeys()
	assert.Equal(t, []string{"extra"}, missing[English])
	assert.Equal(t, []string{"extra", "proj4.desc"}, missing[Pashto])
	_, ok := missing[Persian]
	assert.False(t, ok)
}
