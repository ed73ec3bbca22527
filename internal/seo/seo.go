package seo

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Meta is the head metadata rendered into the page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Locale      string
	SiteName    string
	Image       string
	Alternates  []Alternate
	JSONLD      []map[string]any
}

// Alternates builds one ?lang= link per locale plus x-default pointing at the bare URL.
func Alternates(baseURL string, locales []string) []Alternate {
	out := make([]Alternate, 0, len(locales)+1)
	for _, l := range locales {
		out = append(out, Alternate{Href: withLang(baseURL, l), Hreflang: l})
	}
	return append(out, Alternate{Href: baseURL + "/", Hreflang: "x-default"})
}

func withLang(baseURL, locale string) string {
	return baseURL + "/?lang=" + url.QueryEscape(locale)
}

// Apply writes m into the document head. Existing tags are updated in place and missing
// ones are appended, so applying twice yields the same document.
func Apply(doc *goquery.Document, m Meta) {
	if doc == nil {
		return
	}
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return
	}
	if m.Title != "" {
		title := head.Find("title").First()
		if title.Length() == 0 {
			head.AppendHtml("<title></title>")
			title = head.Find("title").First()
		}
		title.SetText(m.Title)
	}
	setMeta(head, "name", "description", m.Description)
	setMeta(head, "property", "og:title", m.Title)
	setMeta(head, "property", "og:description", m.Description)
	setMeta(head, "property", "og:type", "website")
	setMeta(head, "property", "og:url", m.Canonical)
	setMeta(head, "property", "og:site_name", m.SiteName)
	setMeta(head, "property", "og:locale", m.Locale)
	setMeta(head, "property", "og:image", m.Image)
	setMeta(head, "name", "twitter:card", "summary_large_image")

	if m.Canonical != "" {
		link := ensure(head, `link[rel="canonical"]`, `<link rel="canonical">`)
		link.SetAttr("href", m.Canonical)
	}

	head.Find(`link[rel="alternate"][hreflang]`).Remove()
	for _, a := range m.Alternates {
		head.AppendHtml(`<link rel="alternate">`)
		head.Find(`link[rel="alternate"]`).Last().SetAttr("hreflang", a.Hreflang).SetAttr("href", a.Href)
	}

	head.Find(`script[type="application/ld+json"][data-seo]`).Remove()
	for _, v := range m.JSONLD {
		if payload := JSON(v); payload != "" {
			head.AppendHtml(`<script type="application/ld+json" data-seo></script>`)
			// Text nodes inside script are emitted raw by the renderer.
			head.Find(`script[data-seo]`).Last().SetText(payload)
		}
	}
}

func setMeta(head *goquery.Selection, attr, name, content string) {
	if content == "" {
		return
	}
	sel := ensure(head, `meta[`+attr+`="`+name+`"]`, `<meta `+attr+`="`+name+`">`)
	sel.SetAttr("content", content)
}

func ensure(head *goquery.Selection, selector, markup string) *goquery.Selection {
	sel := head.Find(selector).First()
	if sel.Length() == 0 {
		head.AppendHtml(markup)
		sel = head.Find(selector).Last()
	}
	return sel
}
