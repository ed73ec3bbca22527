package offline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultCacheName is the version token of the current asset generation.
const DefaultCacheName = "hr-portfolio-v3"

// Manifest lists the assets precached on install, relative to the worker scope.
type Manifest []string

// DefaultManifest returns the core shell of the site.
func DefaultManifest() Manifest {
	return Manifest{
		"./",
		"./index.html",
		"./assets/css/styles.css",
		"./assets/js/app.js",
		"./assets/img/cover-gradient.svg",
		"./assets/img/avatar.svg",
	}
}

// ParseManifest splits a comma separated list of paths. Blank items are ignored.
func ParseManifest(raw string) Manifest {
	var out Manifest
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Resolve returns the absolute request keys of the manifest against scope. Duplicate keys
// collapse to the first occurrence.
func (m Manifest) Resolve(scope *url.URL) ([]string, error) {
	if scope == nil || !scope.IsAbs() {
		return nil, errors.New("offline: scope must be an absolute URL")
	}
	seen := make(map[string]struct{}, len(m))
	keys := make([]string, 0, len(m))
	for _, item := range m {
		ref, err := url.Parse(item)
		if err != nil {
			return nil, fmt.Errorf("offline: manifest entry %q: %w", item, err)
		}
		abs := scope.ResolveReference(ref)
		if !sameOrigin(scope, abs) {
			return nil, fmt.Errorf("offline: manifest entry %q leaves the scope origin", item)
		}
		key := RequestKey(abs)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
