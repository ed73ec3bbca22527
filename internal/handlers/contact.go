package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"hrportfolio.dev/web/internal/contact"
	"hrportfolio.dev/web/internal/platform/httpx"
	"hrportfolio.dev/web/internal/platform/requestctx"
)

const maxContactBody = 64 << 10

// Contact relays a submission once. JSON clients receive the localized Result; form
// posts are redirected to the page, which renders the status line.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_form", "form could not be parsed", http.StatusBadRequest))
		return
	}

	sendErr := h.relay.Send(ctx, r.PostForm)
	if sendErr != nil {
		level := logger.Warn
		if errors.Is(sendErr, contact.ErrNotConfigured) {
			level = logger.Error
		}
		level("contact submission failed", zap.Error(sendErr))
	}

	if httpx.WantsJSON(r) {
		res := contact.ResultFor(h.resolvedLocalizer(w, r), sendErr)
		status := http.StatusOK
		if !res.OK {
			status = http.StatusBadGateway
			if errors.Is(sendErr, contact.ErrEmpty) {
				status = http.StatusUnprocessableEntity
			}
		}
		httpx.WriteJSON(w, status, res)
		return
	}

	outcome := "sent"
	if sendErr != nil {
		outcome = "error"
	}
	http.Redirect(w, r, "/?contact="+outcome+contactAnchor, http.StatusSeeOther)
}

// Email redirects to a mailto: URL carrying the default subject and body. It is a 404
// when no address is configured.
func (h *Handler) Email(w http.ResponseWriter, r *http.Request) {
	if !h.emailConfigured() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, contact.MailtoHref(h.emailUser, h.emailDomain, contact.DefaultSubject, contact.DefaultBody), http.StatusFound)
}
