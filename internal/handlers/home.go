package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"hrportfolio.dev/web/internal/contact"
	"hrportfolio.dev/web/internal/i18n"
	"hrportfolio.dev/web/internal/middleware"
	"hrportfolio.dev/web/internal/platform/httpx"
	"hrportfolio.dev/web/internal/platform/requestctx"
	"hrportfolio.dev/web/internal/seo"
	"hrportfolio.dev/web/internal/theme"
)

// Home renders the localized, themed page shell. A ?lang= query applies that locale
// directly; otherwise the stored preference or the Accept-Language tag decides.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(h.index))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("render_failed", "page could not be rendered", http.StatusInternalServerError))
		return
	}

	loc := h.localizer(w, r)
	var locale i18n.Locale
	if q := r.URL.Query().Get("lang"); q != "" {
		locale = i18n.NormalizeTag(q)
		err = loc.Apply(ctx, doc, locale)
	} else {
		locale, err = loc.Init(ctx, doc, middleware.EnvTag(ctx))
	}
	if err != nil {
		logger.Warn("persist locale preference", zap.Error(err))
	}
	i18n.SyncSelector(doc, LangSelectID, locale)

	settings, err := theme.Load(ctx, middleware.Preferences(ctx), theme.SystemPrefersDark(r), h.palette)
	if err != nil {
		logger.Warn("load theme preferences", zap.Error(err))
	}
	settings.CustomPalette = h.customPalette
	theme.Apply(doc, settings)
	requestctx.Annotate(ctx, zap.String("locale", string(locale)), zap.Bool("dark", settings.IsDark()))

	doc.Find("#" + YearID).SetText(strconv.Itoa(h.now().Year()))
	doc.Find("#"+SendButtonID).SetAttr("data-sending", contact.SendingLabel(loc))
	h.applyContactStatus(doc, loc, r.URL.Query().Get("contact"))
	if !h.emailConfigured() {
		doc.Find(EmailLinkSel).Remove()
	}
	seo.Apply(doc, h.meta(loc, locale))

	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Nodes[0]); err != nil {
		logger.Error("render page", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("render_failed", "page could not be rendered", http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", string(locale))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

// localizer returns the request's localizer, binding a cookie store when the Locale
// middleware is not mounted.
func (h *Handler) localizer(w http.ResponseWriter, r *http.Request) *i18n.Localizer {
	if loc := middleware.Localizer(r.Context()); loc != nil {
		return loc
	}
	return i18n.NewLocalizer(h.dict, i18n.NewCookieStore(w, r), i18n.WithLogger(requestctx.Logger(r.Context())))
}

// resolvedLocalizer returns the request's localizer switched to the visitor's locale, for
// responses that carry text but no page.
func (h *Handler) resolvedLocalizer(w http.ResponseWriter, r *http.Request) *i18n.Localizer {
	ctx := r.Context()
	loc := h.localizer(w, r)
	if err := loc.Apply(ctx, nil, loc.Resolve(ctx, middleware.EnvTag(ctx))); err != nil {
		requestctx.Logger(ctx).Warn("persist locale preference", zap.Error(err))
	}
	return loc
}

func (h *Handler) applyContactStatus(doc *goquery.Document, loc *i18n.Localizer, outcome string) {
	var res contact.Result
	switch outcome {
	case "sent":
		res = contact.ResultFor(loc, nil)
	case "error":
		res = contact.ResultFor(loc, contact.ErrRejected)
	default:
		return
	}
	doc.Find("#"+FormStatusID).SetAttr("class", res.Class).SetText(res.Message)
}

func (h *Handler) meta(loc *i18n.Localizer, locale i18n.Locale) seo.Meta {
	m := seo.Meta{
		Description: loc.TOr("hero.lead", ""),
		Locale:      string(locale),
		SiteName:    h.site.Name,
	}
	if h.site.Name != "" {
		m.JSONLD = append(m.JSONLD, seo.Person(h.site.Name, h.site.BaseURL, h.site.JobTitle, h.site.SameAs))
	}
	if h.site.BaseURL == "" {
		return m
	}
	langs := make([]string, 0, 3)
	for _, l := range i18n.SupportedLocales() {
		langs = append(langs, string(l))
	}
	m.Canonical = h.site.BaseURL + "/"
	m.Image = h.site.BaseURL + "/assets/img/cover-gradient.svg"
	m.Alternates = seo.Alternates(h.site.BaseURL, langs)
	if h.site.Name != "" {
		m.JSONLD = append(m.JSONLD, seo.WebSite(h.site.Name, h.site.BaseURL, langs))
	}
	return m
}

func (h *Handler) emailConfigured() bool {
	return h.emailUser != "" && h.emailDomain != ""
}
