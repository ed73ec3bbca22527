package middleware

import (
	"crypto/sha256"
	"encoding/base64"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// AssetCacheControl is applied to every static asset response.
const AssetCacheControl = "public, max-age=604800, stale-while-revalidate=86400"

// assetIndex maps a cleaned asset path to the weak validator of its contents.
type assetIndex map[string]string

func indexAssets(fsys fs.FS) assetIndex {
	idx := assetIndex{}
	_ = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		if tag, err := fingerprint(fsys, name); err == nil {
			idx["/"+name] = tag
		}
		return nil
	})
	return idx
}

func (idx assetIndex) lookup(urlPath string) string {
	return idx[path.Clean("/"+urlPath)]
}

// AssetsWithCache serves fsys under prefix. Responses carry a long-lived Cache-Control and a
// weak ETag computed once from the file contents; conditional GET and HEAD requests whose
// If-None-Match matches are answered with 304.
func AssetsWithCache(fsys fs.FS, prefix string) http.Handler {
	idx := indexAssets(fsys)
	files := http.StripPrefix(prefix, http.FileServer(http.FS(fsys)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Accept-Encoding")
		tag := idx.lookup(strings.TrimPrefix(r.URL.Path, prefix))
		if tag == "" {
			files.ServeHTTP(w, r)
			return
		}
		h.Set("Cache-Control", AssetCacheControl)
		h.Set("ETag", tag)
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) && noneMatch(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// noneMatch applies the weak comparison of RFC 9110 section 13.1.2 to an If-None-Match list.
func noneMatch(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}

func fingerprint(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", err
	}
	return `W/"` + base64.RawURLEncoding.EncodeToString(sum.Sum(nil)[:18]) + `"`, nil
}
