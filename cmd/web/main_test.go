package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrportfolio.dev/web/internal/platform/config"
)

func newTestHandler(t *testing.T, env map[string]string) http.Handler {
	t.Helper()
	cfg, err := config.Load(context.Background(), config.WithEnvMap(env), config.WithoutSystemEnv(), config.WithEnvFile(""))
	require.NoError(t, err)
	h, err := newHandler(cfg, zap.NewNop())
	require.NoError(t, err)
	return h
}

func TestHealthzOK(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestHomeUsesConfiguredDefaultLocale(t *testing.T) {
	h := newTestHandler(t, map[string]string{
		"PORTFOLIO_I18N_DEFAULT_LOCALE": "fa",
		"PORTFOLIO_SITE_BASE_URL":       "https://hr.example.com",
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "fa", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, "rtl", doc.Find("html").AttrOr("dir", ""))
	assert.Equal(t, "https://hr.example.com/", doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
}

func TestAccentImageSetsPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	h := newTestHandler(t, map[string]string{"PORTFOLIO_THEME_ACCENT_IMAGE": path})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, doc.Find("html").AttrOr("style", ""), "--brand: 0 90% 50%")
}

func TestMissingAccentImageKeepsDefaults(t *testing.T) {
	h := newTestHandler(t, map[string]string{"PORTFOLIO_THEME_ACCENT_IMAGE": filepath.Join(t.TempDir(), "absent.png")})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "--brand: ")
}

func TestAssetsServedFromEmbed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/js/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))
}
