package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hrportfolio.dev/web/internal/i18n"
	"hrportfolio.dev/web/internal/middleware"
	"hrportfolio.dev/web/internal/platform/httpx"
	"hrportfolio.dev/web/internal/platform/requestctx"
	"hrportfolio.dev/web/internal/theme"
)

// SetLanguage stores the chosen locale and sends the visitor back to the page.
func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := strings.ToLower(strings.TrimSpace(r.FormValue("lang")))
	locale := i18n.Locale(raw)
	if !locale.Supported() {
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_locale", "language is not supported", http.StatusBadRequest).
			WithDetails(map[string]any{"lang": raw}))
		return
	}
	if err := h.localizer(w, r).Apply(ctx, nil, locale); err != nil {
		requestctx.Logger(ctx).Warn("persist locale preference", zap.Error(err))
	}
	h.done(w, r, map[string]any{"lang": string(locale), "dir": string(locale.Direction())})
}

// ToggleTheme flips the effective colour scheme and stores the explicit choice.
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prefs := middleware.Preferences(ctx)
	settings, err := theme.Load(ctx, prefs, theme.SystemPrefersDark(r), h.palette)
	if err != nil {
		requestctx.Logger(ctx).Warn("load theme preferences", zap.Error(err))
	}
	next := settings.Toggled()
	if err := theme.SavePreference(ctx, prefs, next); err != nil {
		requestctx.Logger(ctx).Warn("persist theme preference", zap.Error(err))
	}
	h.done(w, r, map[string]any{"theme": string(next)})
}

// SetReduceMotion stores the reduce-motion flag from the footer checkbox.
func (h *Handler) SetReduceMotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	on := isChecked(r.FormValue("reduce"))
	if err := theme.SaveReduceMotion(ctx, middleware.Preferences(ctx), on); err != nil {
		requestctx.Logger(ctx).Warn("persist reduce motion", zap.Error(err))
	}
	h.done(w, r, map[string]any{"reduce_motion": on})
}

// done answers JSON clients with body and redirects form posts back to the page.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, body map[string]any) {
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, body)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
