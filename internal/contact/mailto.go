package contact

import (
	"net/url"
	"strings"
)

// Defaults for the obfuscated email link.
const (
	DefaultSubject = "Portfolio inquiry"
	DefaultBody    = "Hi Habibur,\n\nI'd like to connect about..."
)

// MailtoHref assembles the mailto link at request time so the address never sits in markup.
// It returns "" when user or domain is empty.
func MailtoHref(user, domain, subject, body string) string {
	user, domain = strings.TrimSpace(user), strings.TrimSpace(domain)
	if user == "" || domain == "" {
		return ""
	}
	return "mailto:" + user + "@" + domain + "?subject=" + encodeComponent(subject) + "&body=" + encodeComponent(body)
}

var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes like encodeURIComponent: spaces become %20 and !'()* stay literal.
func encodeComponent(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}
