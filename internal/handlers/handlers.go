package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"

	"hrportfolio.dev/web/internal/contact"
	"hrportfolio.dev/web/internal/i18n"
	"hrportfolio.dev/web/internal/theme"
)

// Element ids of the page shell.
const (
	LangSelectID  = "langSelect"
	YearID        = "year"
	FormStatusID  = "formStatus"
	SendButtonID  = "sendBtn"
	EmailLinkSel  = ".email-link"
	contactAnchor = "#contact"
)

// Site describes the portfolio owner for page metadata.
type Site struct {
	Name     string
	BaseURL  string
	JobTitle string
	SameAs   []string
}

// Handler renders the page shell and handles the preference and contact forms.
type Handler struct {
	index         []byte
	dict          *i18n.Dictionary
	relay         *contact.Relay
	site          Site
	palette       theme.Palette
	customPalette bool
	emailUser     string
	emailDomain   string
	now           func() time.Time
}

// Option customises a Handler.
type Option func(*Handler)

// WithRelay sets the contact relay. Without one, submissions report an error.
func WithRelay(r *contact.Relay) Option {
	return func(h *Handler) {
		if r != nil {
			h.relay = r
		}
	}
}

// WithSite sets owner metadata.
func WithSite(s Site) Option {
	return func(h *Handler) { h.site = s }
}

// WithPalette renders p into the page instead of the stylesheet default.
func WithPalette(p theme.Palette) Option {
	return func(h *Handler) {
		h.palette = p
		h.customPalette = true
	}
}

// WithEmail sets the address behind the email links. Both parts are required.
func WithEmail(user, domain string) Option {
	return func(h *Handler) {
		h.emailUser = user
		h.emailDomain = domain
	}
}

// WithClock injects the clock used for the footer year.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New validates index as an HTML document and returns a Handler rendering it.
func New(index []byte, dict *i18n.Dictionary, opts ...Option) (*Handler, error) {
	if len(index) == 0 {
		return nil, errors.New("handlers: index document is empty")
	}
	if dict == nil {
		return nil, errors.New("handlers: dictionary is required")
	}
	if _, err := goquery.NewDocumentFromReader(bytes.NewReader(index)); err != nil {
		return nil, err
	}
	h := &Handler{
		index:   index,
		dict:    dict,
		relay:   contact.NewRelay(""),
		palette: theme.DefaultPalette(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Routes mounts the page and form endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/index.html", h.Home)
	r.Post("/lang", h.SetLanguage)
	r.Post("/theme", h.ToggleTheme)
	r.Post("/reduce-motion", h.SetReduceMotion)
	r.Post("/contact", h.Contact)
	r.Get("/contact/email", h.Email)
	r.Get("/healthz", Healthz)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
