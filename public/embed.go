// Package public holds the site shell and its static assets.
package public

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// IndexPath is the page document inside Static.
const IndexPath = "index.html"

// Static returns the site root: index.html and the assets tree.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Assets returns the assets tree served under /assets.
func Assets() fs.FS {
	sub, err := fs.Sub(files, "static/assets")
	if err != nil {
		panic(err)
	}
	return sub
}
