package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Dictionary maps each locale to a nested tree of translation strings. It is
// immutable once loaded and safe for concurrent use.
type Dictionary struct {
	trees map[Locale]map[string]any
}

// LoadEmbedded loads the dictionary bundled with the binary.
func LoadEmbedded() (*Dictionary, error) {
	sub, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: embedded locales: %w", err)
	}
	return Load(sub)
}

// Load reads <locale>.yaml for every supported locale from fsys. The default locale
// file is required; other locales may be missing and then resolve every key as absent.
func Load(fsys fs.FS) (*Dictionary, error) {
	d := &Dictionary{trees: map[Locale]map[string]any{}}
	for _, l := range supportedLocales {
		raw, err := fs.ReadFile(fsys, string(l)+".yaml")
		if err != nil {
			if l == DefaultLocale {
				return nil, fmt.Errorf("i18n: load locale %s: %w", l, err)
			}
			continue
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", l, err)
		}
		if tree == nil {
			tree = map[string]any{}
		}
		d.trees[l] = tree
	}
	return d, nil
}

// NewDictionary builds a dictionary from in-memory trees. Trees are used as given and
// must not be mutated afterwards.
func NewDictionary(trees map[Locale]map[string]any) *Dictionary {
	d := &Dictionary{trees: make(map[Locale]map[string]any, len(trees))}
	for l, t := range trees {
		d.trees[l] = t
	}
	return d
}

// Locales lists the locales that have a tree loaded.
func (d *Dictionary) Locales() []Locale {
	out := make([]Locale, 0, len(d.trees))
	for _, l := range supportedLocales {
		if _, ok := d.trees[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Lookup walks the dotted key through the tree of locale. It reports false when the
// locale is unknown, any segment is missing, or the final value is not a string.
func (d *Dictionary) Lookup(locale Locale, key string) (value string, ok bool) {
	if d == nil || key == "" {
		return "", false
	}
	defer func() {
		if recover() != nil {
			value, ok = "", false
		}
	}()
	var node any = d.trees[locale]
	if node == nil {
		return "", false
	}
	for _, seg := range strings.Split(key, ".") {
		m, isMap := node.(map[string]any)
		if !isMap {
			return "", false
		}
		next, found := m[seg]
		if !found {
			return "", false
		}
		node = next
	}
	s, isString := node.(string)
	return s, isString
}

// Keys returns the sorted dotted paths of every string leaf of locale.
func (d *Dictionary) Keys(locale Locale) []string {
	tree, ok := d.trees[locale]
	if !ok {
		return nil
	}
	var keys []string
	collectKeys(tree, "", &keys)
	sort.Strings(keys)
	return keys
}

func collectKeys(node map[string]any, prefix string, out *[]string) {
	for k, v := range node {
		p := k
		if prefix != "" {
			p = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			collectKeys(child, p, out)
		case string:
			*out = append(*out, p)
		}
	}
}

// MissingKeys reports, per supported locale, the dotted paths present in some other
// locale but absent from it. Locales with complete key sets are omitted.
func (d *Dictionary) MissingKeys() map[Locale][]string {
	union := map[string]struct{}{}
	perLocale := map[Locale]map[string]struct{}{}
	for _, l := range supportedLocales {
		set := map[string]struct{}{}
		for _, k := range d.Keys(l) {
			set[k] = struct{}{}
			union[k] = struct{}{}
		}
		perLocale[l] = set
	}
	missing := map[Locale][]string{}
	for _, l := range supportedLocales {
		for k := range union {
			if _, ok := perLocale[l][k]; !ok {
				missing[l] = append(missing[l], k)
			}
		}
		sort.Strings(missing[l])
		if len(missing[l]) == 0 {
			delete(missing, l)
		}
	}
	return missing
}
