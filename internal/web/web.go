// Package web embeds the frontend build output for the server.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// Dist returns the build output rooted at dist/, so index.html is at the top.
func Dist() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
