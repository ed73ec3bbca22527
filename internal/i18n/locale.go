package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported display language code.
type Locale string

const (
	English Locale = "en"
	Pashto  Locale = "ps"
	Persian Locale = "fa"

	// DefaultLocale is used when neither a stored preference nor the environment tag
	// maps to a supported locale.
	DefaultLocale = English
)

var supportedLocales = []Locale{English, Pashto, Persian}

// SupportedLocales returns the supported locale codes in display order.
func SupportedLocales() []Locale {
	out := make([]Locale, len(supportedLocales))
	copy(out, supportedLocales)
	return out
}

// Supported reports whether l is one of the supported codes.
func (l Locale) Supported() bool {
	for _, s := range supportedLocales {
		if l == s {
			return true
		}
	}
	return false
}

func (l Locale) String() string { return string(l) }

// Direction is the text direction of a locale.
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

// Direction returns rtl for Pashto and Persian and ltr for everything else.
func (l Locale) Direction() Direction {
	if l == Pashto || l == Persian {
		return RTL
	}
	return LTR
}

// NormalizeTag maps an arbitrary language tag onto a supported locale: the primary
// two-letter subtag is used when supported, otherwise fa* maps to fa, ps* to ps and
// anything else to en.
func NormalizeTag(tag string) Locale {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return DefaultLocale
	}
	primary := tag
	if len(primary) > 2 {
		primary = primary[:2]
	}
	if l := Locale(primary); l.Supported() {
		return l
	}
	switch {
	case strings.HasPrefix(tag, string(Persian)):
		return Persian
	case strings.HasPrefix(tag, string(Pashto)):
		return Pashto
	default:
		return DefaultLocale
	}
}

// EnvironmentTag extracts the most preferred language tag from an Accept-Language
// header. Malformed headers fall back to their first comma separated token.
func EnvironmentTag(acceptLanguage string) string {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err == nil && len(tags) > 0 {
		return tags[0].String()
	}
	first := acceptLanguage
	if i := strings.IndexByte(first, ','); i != -1 {
		first = first[:i]
	}
	if i := strings.IndexByte(first, ';'); i != -1 {
		first = first[:i]
	}
	return strings.TrimSpace(first)
}
