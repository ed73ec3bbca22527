package handlers

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrportfolio.dev/web/internal/i18n"
	mw "hrportfolio.dev/web/internal/middleware"
	"hrportfolio.dev/web/public"
)

func newSiteRouter(t *testing.T) http.Handler {
	t.Helper()
	index, err := fs.ReadFile(public.Static(), public.IndexPath)
	require.NoError(t, err)
	dict, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	h, err := New(index, dict)
	require.NoError(t, err)
	return h.NewRouter(
		WithAssets(mw.AssetsWithCache(public.Assets(), "/assets")),
		WithFallbackLocale(i18n.Pashto),
	)
}

func TestRouterServesAssets(t *testing.T) {
	rec := serve(t, newSiteRouter(t), httptest.NewRequest(http.MethodGet, "/assets/css/styles.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mw.AssetCacheControl, rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Contains(t, rec.Body.String(), "--brand: 221 83% 53%")
}

func TestRouterPageUsesFallbackLocale(t *testing.T) {
	rec := serve(t, newSiteRouter(t), httptest.NewRequest(http.MethodGet, "/", nil))
	doc := page(t, rec)
	assert.Equal(t, "ps", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, "Sec-CH-Prefers-Color-Scheme", rec.Header().Get("Accept-CH"))
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	rec := serve(t, newSiteRouter(t), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), errorNotFoundCode)

	rec = serve(t, newSiteRouter(t), httptest.NewRequest(http.MethodDelete, "/lang", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
