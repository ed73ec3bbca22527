package seo

import (
	"encoding/json"
	"strings"
)

// JSON marshals v to a compact JSON string safe to embed in a script element. It returns
// an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	// json.Marshal already escapes <, > and &; guard the closing tag sequence anyway.
	return strings.ReplaceAll(string(b), "</", `<\/`)
}

// Person returns a schema.org Person for the portfolio owner.
func Person(name, url, jobTitle string, sameAs []string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Person",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if jobTitle != "" {
		m["jobTitle"] = jobTitle
	}
	if len(sameAs) > 0 {
		m["sameAs"] = sameAs
	}
	return m
}

// WebSite returns a schema.org WebSite listing the available languages.
func WebSite(name, url string, languages []string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if len(languages) > 0 {
		m["inLanguage"] = languages
	}
	return m
}
