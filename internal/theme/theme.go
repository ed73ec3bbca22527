package theme

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hrportfolio.dev/web/internal/i18n"
)

// Preference is the visitor's colour scheme choice.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

// Element hooks in the page document.
const (
	DarkClass          = "dark"
	ReduceMotionClass  = "reduce-motion"
	ThemeColorMetaID   = "theme-color-meta"
	ReduceMotionToggle = "reduceMotionToggle"
)

// ColorSchemeHint is the client hint carrying the browser's prefers-color-scheme.
const ColorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

// ParsePreference maps a stored value to a Preference; anything unknown is System.
func ParsePreference(raw string) Preference {
	switch Preference(strings.ToLower(strings.TrimSpace(raw))) {
	case Light:
		return Light
	case Dark:
		return Dark
	default:
		return System
	}
}

// Settings is everything the page needs to render the theme.
type Settings struct {
	Preference   Preference
	SystemDark   bool
	ReduceMotion bool
	Palette      Palette
	// CustomPalette writes the palette into <html style>; otherwise the stylesheet default applies.
	CustomPalette bool
}

// IsDark reports whether the effective scheme is dark.
func (s Settings) IsDark() bool {
	return s.Preference == Dark || (s.Preference == System && s.SystemDark)
}

// Toggled is the preference chosen by the theme toggle: the opposite of what is shown.
func (s Settings) Toggled() Preference {
	if s.IsDark() {
		return Light
	}
	return Dark
}

// SystemPrefersDark reads the colour scheme client hint.
func SystemPrefersDark(r *http.Request) bool {
	if r == nil {
		return false
	}
	v := strings.Trim(strings.TrimSpace(r.Header.Get(ColorSchemeHint)), `"`)
	return strings.EqualFold(v, "dark")
}

// Load reads the theme and reduce-motion preferences from store.
func Load(ctx context.Context, store i18n.PreferenceStore, systemDark bool, palette Palette) (Settings, error) {
	s := Settings{Preference: System, SystemDark: systemDark, Palette: palette}
	if store == nil {
		return s, nil
	}
	raw, ok, err := store.Get(ctx, i18n.ThemePreferenceKey)
	if err != nil {
		return s, fmt.Errorf("theme: read preference: %w", err)
	}
	if ok {
		s.Preference = ParsePreference(raw)
	}
	reduce, ok, err := store.Get(ctx, i18n.ReduceMotionKey)
	if err != nil {
		return s, fmt.Errorf("theme: read reduce motion: %w", err)
	}
	s.ReduceMotion = ok && reduce == "true"
	return s, nil
}

// SavePreference persists p.
func SavePreference(ctx context.Context, store i18n.PreferenceStore, p Preference) error {
	if err := store.Set(ctx, i18n.ThemePreferenceKey, string(ParsePreference(string(p)))); err != nil {
		return fmt.Errorf("theme: save preference: %w", err)
	}
	return nil
}

// SaveReduceMotion persists the reduce-motion flag.
func SaveReduceMotion(ctx context.Context, store i18n.PreferenceStore, on bool) error {
	if err := store.Set(ctx, i18n.ReduceMotionKey, fmt.Sprintf("%t", on)); err != nil {
		return fmt.Errorf("theme: save reduce motion: %w", err)
	}
	return nil
}

// Apply renders s onto doc: the dark class, the browser theme colour, the reduce-motion
// class and toggle, and the custom palette when one is set.
func Apply(doc *goquery.Document, s Settings) {
	if doc == nil {
		return
	}
	html := doc.Find("html").First()
	dark := s.IsDark()
	if dark {
		html.AddClass(DarkClass)
	} else {
		html.RemoveClass(DarkClass)
	}

	lightness := 50
	if dark {
		lightness = 16
	}
	doc.Find("#"+ThemeColorMetaID).SetAttr("content",
		fmt.Sprintf("hsl(%d %d%% %d%%)", s.Palette.Brand.H, s.Palette.Brand.S, lightness))

	if s.ReduceMotion {
		html.AddClass(ReduceMotionClass)
		doc.Find("#"+ReduceMotionToggle).SetAttr("checked", "")
	} else {
		html.RemoveClass(ReduceMotionClass)
		doc.Find("#" + ReduceMotionToggle).RemoveAttr("checked")
	}

	if s.CustomPalette {
		html.SetAttr("style", mergeStyle(html.AttrOr("style", ""), s.Palette.Declarations()))
	}
}

// mergeStyle replaces any brand custom properties in style with decls.
func mergeStyle(style, decls string) string {
	var kept []string
	for _, part := range strings.Split(style, ";") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "--brand") {
			continue
		}
		kept = append(kept, part)
	}
	kept = append(kept, decls)
	return strings.Join(kept, "; ")
}
