package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// logSafe removes control characters and truncates to limit runes so client supplied
// values cannot forge or flood log lines.
func logSafe(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(cleaned) <= limit {
		return cleaned
	}
	return string([]rune(cleaned)[:limit])
}

// SanitizeRoute cleans a route pattern for logs and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return logSafe(route, 180)
}

// SanitizeMethod cleans an HTTP method for logs and span names.
func SanitizeMethod(method string) string {
	return strings.ToUpper(logSafe(method, 10))
}
