package i18n

import (
	"github.com/PuerkitoBio/goquery"
)

// Marker attributes consumed by the projector.
const (
	TextAttr        = "data-i18n"
	PlaceholderAttr = "data-i18n-placeholder"
)

// Project rewrites doc for locale: the document language and direction, the rtl body
// class, the text of every [data-i18n] node and the placeholder of every
// [data-i18n-placeholder] node. Nodes whose key does not resolve keep their content.
// Node references are not retained between calls.
func Project(doc *goquery.Document, dict *Dictionary, locale Locale) {
	if doc == nil {
		return
	}
	dir := locale.Direction()
	root := doc.Find("html").First()
	root.SetAttr("lang", string(locale))
	root.SetAttr("dir", string(dir))

	body := doc.Find("body").First()
	if dir == RTL {
		body.AddClass("rtl")
	} else {
		body.RemoveClass("rtl")
	}

	doc.Find("[" + TextAttr + "]").Each(func(_ int, sel *goquery.Selection) {
		key, _ := sel.Attr(TextAttr)
		if value, ok := dict.Lookup(locale, key); ok {
			sel.SetText(value)
		}
	})
	doc.Find("[" + PlaceholderAttr + "]").Each(func(_ int, sel *goquery.Selection) {
		key, _ := sel.Attr(PlaceholderAttr)
		if value, ok := dict.Lookup(locale, key); ok {
			sel.SetAttr("placeholder", value)
		}
	})
}

// SyncSelector marks the option of the language <select> matching locale as selected.
func SyncSelector(doc *goquery.Document, selectID string, locale Locale) {
	if doc == nil || selectID == "" {
		return
	}
	doc.Find("select#" + selectID + " option").Each(func(_ int, opt *goquery.Selection) {
		value, _ := opt.Attr("value")
		if value == string(locale) {
			opt.SetAttr("selected", "selected")
		} else {
			opt.RemoveAttr("selected")
		}
	})
}
