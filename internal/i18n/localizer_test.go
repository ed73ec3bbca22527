package i18n

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<!doctype html>
<html lang="en" dir="ltr">
<head><title>t</title></head>
<body class="page">
  <a data-i18n="skip">Skip to content</a>
  <h2 data-i18n="section.contact.title">Contact</h2>
  <button data-i18n="contact.btnSend">Send</button>
  <p id="proj4" data-i18n="proj4.desc">Raw HTML default</p>
  <p id="unknown" data-i18n="does.not.exist">keep me</p>
  <input id="name" data-i18n-placeholder="contact.phName" placeholder="Your name">
  <input id="ghost" data-i18n-placeholder="contact.phGhost" placeholder="ghost">
  <select id="langSelect">
    <option value="en" selected>EN</option>
    <option value="ps">PS</option>
    <option value="fa">FA</option>
  </select>
</body>
</html>`

func parseDoc(t testing.TB, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func renderDoc(t testing.TB, doc *goquery.Document) string {
	t.Helper()
	out, err := goquery.OuterHtml(doc.Selection)
	require.NoError(t, err)
	return out
}

func embedded(t testing.TB) *Dictionary {
	t.Helper()
	dict, err := LoadEmbedded()
	require.NoError(t, err)
	return dict
}

func TestInitWithoutPreferenceUsesEnvironmentTag(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	loc := NewLocalizer(embedded(t), store)
	doc := parseDoc(t, testPage)

	got, err := loc.Init(ctx, doc, "fa-IR")
	require.NoError(t, err)
	assert.Equal(t, Persian, got)
	assert.Equal(t, Persian, loc.Current())

	html := doc.Find("html")
	assert.Equal(t, "fa", html.AttrOr("lang", ""))
	assert.Equal(t, "rtl", html.AttrOr("dir", ""))
	assert.True(t, doc.Find("body").HasClass("rtl"))
	assert.True(t, doc.Find("body").HasClass("page"))
	assert.Equal(t, "ارسال", doc.Find("button").Text())
	assert.Equal(t, "نام شما", doc.Find("#name").AttrOr("placeholder", ""))

	stored, ok, err := store.Get(ctx, LangPreferenceKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fa", stored)
}

func TestSelectingLocaleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, LangPreferenceKey, "en"))
	loc := NewLocalizer(embedded(t), store)
	doc := parseDoc(t, testPage)

	_, err := loc.Init(ctx, doc, "fa")
	require.NoError(t, err)
	assert.Equal(t, English, loc.Current())

	require.NoError(t, loc.Apply(ctx, doc, Pashto))
	first := renderDoc(t, doc)
	stored, _, _ := store.Get(ctx, LangPreferenceKey)
	assert.Equal(t, "ps", stored)
	assert.Equal(t, "لېږل", doc.Find("button").Text())

	require.NoError(t, loc.Apply(ctx, doc, Pashto))
	assert.Equal(t, first, renderDoc(t, doc))
	stored, _, _ = store.Get(ctx, LangPreferenceKey)
	assert.Equal(t, "ps", stored)
}

func TestApplyKeepsContentOnMissingPath(t *testing.T) {
	ctx := context.Background()
	en := embedded(t)
	ps := map[string]any{}
	for _, key := range en.Keys(Pashto) {
		if key == "proj4.desc" {
			continue
		}
		v, _ := en.Lookup(Pashto, key)
		setPath(ps, key, v)
	}
	enTree := map[string]any{}
	for _, key := range en.Keys(English) {
		v, _ := en.Lookup(English, key)
		setPath(enTree, key, v)
	}
	dict := NewDictionary(map[Locale]map[string]any{English: enTree, Pashto: ps})

	loc := NewLocalizer(dict, NewMemoryStore())
	doc := parseDoc(t, testPage)
	require.NoError(t, loc.Apply(ctx, doc, Pashto))

	assert.Equal(t, "Raw HTML default", doc.Find("#proj4").Text())
	assert.Equal(t, "keep me", doc.Find("#unknown").Text())
	assert.Equal(t, "ghost", doc.Find("#ghost").AttrOr("placeholder", ""))
	assert.Equal(t, "لېږل", doc.Find("button").Text())

	_, ok := loc.T("proj4.desc")
	assert.False(t, ok)
	v, ok := loc.TIn(English, "proj4.desc")
	assert.True(t, ok)
	assert.NotEmpty(t, v)
}

func TestApplyUnsupportedLocaleChangesNoText(t *testing.T) {
	ctx := context.Background()
	loc := NewLocalizer(embedded(t), NewMemoryStore())
	doc := parseDoc(t, testPage)
	before := doc.Find("body").Text()

	require.NoError(t, loc.Apply(ctx, doc, Locale("de")))
	assert.Equal(t, before, doc.Find("body").Text())
	assert.Equal(t, "ltr", doc.Find("html").AttrOr("dir", ""))
	assert.Equal(t, "de", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, "Your name", doc.Find("#name").AttrOr("placeholder", ""))
}

func TestDirectionTogglesBack(t *testing.T) {
	ctx := context.Background()
	loc := NewLocalizer(embedded(t), NewMemoryStore())
	doc := parseDoc(t, testPage)

	require.NoError(t, loc.Apply(ctx, doc, Persian))
	assert.True(t, doc.Find("body").HasClass("rtl"))
	require.NoError(t, loc.Apply(ctx, doc, English))
	assert.False(t, doc.Find("body").HasClass("rtl"))
	assert.Equal(t, "ltr", doc.Find("html").AttrOr("dir", ""))
	assert.Equal(t, "Send", doc.Find("button").Text())
}

func TestResolveNormalisesStoredPreference(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	loc := NewLocalizer(embedded(t), store)

	require.NoError(t, store.Set(ctx, LangPreferenceKey, "fa-AF"))
	assert.Equal(t, Persian, loc.Resolve(ctx, "en"))

	require.NoError(t, store.Set(ctx, LangPreferenceKey, "klingon"))
	assert.Equal(t, English, loc.Resolve(ctx, "ps"))

	require.NoError(t, store.Set(ctx, LangPreferenceKey, "ps"))
	assert.Equal(t, Pashto, loc.Resolve(ctx, "fa"))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store down")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("store down")
}

func TestStoreFailuresAreNotFatalToProjection(t *testing.T) {
	ctx := context.Background()
	loc := NewLocalizer(embedded(t), failingStore{})
	doc := parseDoc(t, testPage)

	assert.Equal(t, Pashto, loc.Resolve(ctx, "ps-AF"))
	err := loc.Apply(ctx, doc, Pashto)
	require.Error(t, err)
	assert.Equal(t, "لېږل", doc.Find("button").Text())
	assert.Equal(t, Pashto, loc.Current())
}

func TestTranslateFallbacks(t *testing.T) {
	ctx := context.Background()
	loc := NewLocalizer(embedded(t), NewMemoryStore())
	assert.Equal(t, English, loc.Current())
	assert.Equal(t, "Send", loc.TOr("contact.btnSend", "literal"))
	assert.Equal(t, "literal", loc.TOr("contact.nothing", "literal"))

	require.NoError(t, loc.Apply(ctx, nil, Persian))
	assert.Equal(t, "ممنون! پیام شما ارسال شد.", loc.TOr("contact.success", "Thanks!"))
	v, ok := loc.TIn(English, "contact.success")
	assert.True(t, ok)
	assert.Equal(t, "Thanks! Your message was sent.", v)
}

func TestSyncSelector(t *testing.T) {
	doc := parseDoc(t, testPage)
	SyncSelector(doc, "langSelect", Persian)
	_, enSelected := doc.Find(`option[value="en"]`).Attr("selected")
	_, faSelected := doc.Find(`option[value="fa"]`).Attr("selected")
	assert.False(t, enSelected)
	assert.True(t, faSelected)
}

func setPath(tree map[string]any, key, value string) {
	segs := strings.Split(key, ".")
	node := tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = value
}
