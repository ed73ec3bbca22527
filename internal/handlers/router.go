package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hrportfolio.dev/web/internal/i18n"
	mw "hrportfolio.dev/web/internal/middleware"
	"hrportfolio.dev/web/internal/platform/httpx"
)

const (
	defaultTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	assets      http.Handler
	fallback    i18n.Locale
	timeout     time.Duration
}

// RouterOption customises NewRouter.
type RouterOption func(*routerConfig)

// WithMiddlewares appends global middleware after request id, real ip and timeout.
func WithMiddlewares(m ...func(http.Handler) http.Handler) RouterOption {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, m...)
	}
}

// WithAssets mounts h under /assets/.
func WithAssets(h http.Handler) RouterOption {
	return func(cfg *routerConfig) { cfg.assets = h }
}

// WithFallbackLocale sets the locale used when a request has no Accept-Language header.
func WithFallbackLocale(l i18n.Locale) RouterOption {
	return func(cfg *routerConfig) { cfg.fallback = l }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) RouterOption {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// NewRouter builds the site router: shared middleware, static assets and the page routes
// behind locale resolution.
func (h *Handler) NewRouter(opts ...RouterOption) chi.Router {
	cfg := routerConfig{fallback: i18n.DefaultLocale, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	for _, m := range cfg.middlewares {
		if m != nil {
			r.Use(m)
		}
	}
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(cfg.timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	if cfg.assets != nil {
		r.Handle("/assets/*", cfg.assets)
	}
	r.Group(func(page chi.Router) {
		page.Use(mw.Locale(h.dict, cfg.fallback))
		page.Use(mw.VaryLocale)
		page.Use(mw.ColorSchemeHints)
		h.Routes(page)
	})
	return r
}
