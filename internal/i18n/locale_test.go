package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvironmentTagHonorsQValues(t *testing.T) {
	got := EnvironmentTag("en;q=0.8, fa-IR;q=0.9")
	assert.Equal(t, "fa-IR", got)
}

func TestEnvironmentTagMalformedHeader(t *testing.T) {
	assert.Equal(t, "", EnvironmentTag("   "))
	assert.Equal(t, "ps_AF", EnvironmentTag("ps_AF;q=x, en"))
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]Locale{
		"":       English,
		"en":     English,
		"en-US":  English,
		"fa":     Persian,
		"fa-IR":  Persian,
		"FA-ir":  Persian,
		"ps":     Pashto,
		"ps-AF":  Pashto,
		"de-DE":  English,
		"f":      English,
		"p":      English,
		"zh-Han": English,
		"*":      English,
		"und":    English,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTag(in), "tag %q", in)
	}
}

func TestNormalizeTagAlwaysSupported(t *testing.T) {
	inputs := []string{"x", "xx-YY", "fam", "pst", "pt-BR", "ar", "123", "-", "fa_", "ps-Arab-AF"}
	for _, in := range inputs {
		got := NormalizeTag(in)
		assert.True(t, got.Supported(), "tag %q resolved to %q", in, got)
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, LTR, English.Direction())
	assert.Equal(t, RTL, Pashto.Direction())
	assert.Equal(t, RTL, Persian.Direction())
	assert.Equal(t, LTR, Locale("de").Direction())
}

func TestSupportedLocalesIsACopy(t *testing.T) {
	got := SupportedLocales()
	got[0] = "xx"
	assert.Equal(t, English, SupportedLocales()[0])
}
