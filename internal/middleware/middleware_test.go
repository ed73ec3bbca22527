package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrportfolio.dev/web/internal/i18n"
	"hrportfolio.dev/web/internal/theme"
)

func TestLocaleBindsLocalizerAndEnvTag(t *testing.T) {
	dict, err := i18n.LoadEmbedded()
	require.NoError(t, err)

	var (
		env string
		loc *i18n.Localizer
	)
	h := Locale(dict, i18n.Persian)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env = EnvTag(r.Context())
		loc = Localizer(r.Context())
		require.NoError(t, Preferences(r.Context()).Set(r.Context(), i18n.LangPreferenceKey, "ps"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ps-AF,ps;q=0.9,en;q=0.5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "ps-AF", env)
	require.NotNil(t, loc)
	assert.Equal(t, i18n.Pashto, loc.Resolve(req.Context(), env))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, i18n.LangPreferenceKey, cookies[0].Name)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "fa", env)
}

func TestContextDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, Localizer(req.Context()))
	assert.Empty(t, EnvTag(req.Context()))
	assert.NotNil(t, Preferences(req.Context()))
}

func TestVaryLocaleAndHints(t *testing.T) {
	h := VaryLocale(ColorSchemeHints(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.ElementsMatch(t, []string{"Accept-Language", "Cookie", theme.ColorSchemeHint}, rec.Header().Values("Vary"))
	assert.Equal(t, theme.ColorSchemeHint, rec.Header().Get("Accept-CH"))
}

func TestAssetsWithCache(t *testing.T) {
	fsys := fstest.MapFS{
		"css/styles.css": {Data: []byte("body{}")},
	}
	h := AssetsWithCache(fsys, "/assets")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/css/styles.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
	assert.Equal(t, AssetCacheControl, rec.Header().Get("Cache-Control"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Contains(t, etag, `W/"`)

	req := httptest.NewRequest(http.MethodGet, "/assets/css/styles.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestAssetsWithCacheConditionalLists(t *testing.T) {
	h := AssetsWithCache(fstest.MapFS{"js/app.js": {Data: []byte("1")}}, "/assets")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/assets/js/app.js", nil))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cases := []struct {
		header string
		want   int
	}{
		{`"stale", ` + etag, http.StatusNotModified},
		{strings.TrimPrefix(etag, "W/"), http.StatusNotModified},
		{"*", http.StatusNotModified},
		{`W/"stale"`, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/assets/js/app.js", nil)
		req.Header.Set("If-None-Match", tc.header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.header)
	}
}
