package middleware

import (
	"net/http"

	"hrportfolio.dev/web/internal/theme"
)

// ColorSchemeHints asks supporting browsers to send the preferred color scheme client hint
// so the first render can follow the system theme.
func ColorSchemeHints(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Accept-CH", theme.ColorSchemeHint)
		h.Set("Critical-CH", theme.ColorSchemeHint)
		h.Add("Vary", theme.ColorSchemeHint)
		next.ServeHTTP(w, r)
	})
}
