package middleware

import (
	"net/http"

	"hrportfolio.dev/web/internal/i18n"
	"hrportfolio.dev/web/internal/platform/requestctx"
)

// Locale binds a cookie backed preference store and a Localizer to every request. The
// environment tag is the first Accept-Language entry, or fallback when the header is
// absent.
func Locale(dict *i18n.Dictionary, fallback i18n.Locale) func(http.Handler) http.Handler {
	if !fallback.Supported() {
		fallback = i18n.DefaultLocale
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			store := i18n.NewCookieStore(w, r)
			loc := i18n.NewLocalizer(dict, store, i18n.WithLogger(requestctx.Logger(ctx)))

			env := i18n.EnvironmentTag(r.Header.Get("Accept-Language"))
			if env == "" {
				env = string(fallback)
			}

			ctx = WithPreferences(ctx, store)
			ctx = WithLocalizer(ctx, loc)
			ctx = WithEnvTag(ctx, env)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VaryLocale marks dynamic responses as varying by language header and preference cookies.
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		w.Header().Add("Vary", "Cookie")
		next.ServeHTTP(w, r)
	})
}
