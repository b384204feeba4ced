// Package imageurl turns the relative image paths returned by the catalog
// into absolute URLs at a chosen size tier.
package imageurl

import (
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultBase = "https://image.tmdb.org/t/p"

	PlaceholderMovie = "/placeholder-movie.jpg"
	PlaceholderActor = "/placeholder-actor.jpg"
)

type Kind string

const (
	Poster   Kind = "poster"
	Backdrop Kind = "backdrop"
	Profile  Kind = "profile"
)

var sizes = map[Kind][]string{
	Poster:   {"w92", "w154", "w185", "w342", "w500", "w780", "original"},
	Backdrop: {"w300", "w780", "w1280", "original"},
	Profile:  {"w45", "w185", "h632", "original"},
}

var defaults = map[Kind]string{
	Poster:   "w500",
	Backdrop: "w1280",
	Profile:  "w185",
}

// Sizes lists the tiers valid for kind, smallest first.
func Sizes(kind Kind) []string { return slices.Clone(sizes[kind]) }

func ValidSize(kind Kind, size string) bool {
	return slices.Contains(sizes[kind], size)
}

type Resolver struct {
	base string
}

// New returns a resolver rooted at base; an empty base uses DefaultBase.
func New(base string) Resolver {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultBase
	}
	return Resolver{base: base}
}

func (r Resolver) Base() string { return r.base }

// URL builds the absolute URL. An unknown size falls back to the kind's
// default tier. Missing paths resolve to a placeholder, except backdrops
// which resolve to "".
func (r Resolver) URL(kind Kind, path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return placeholder(kind)
	}
	if !ValidSize(kind, size) {
		size = defaults[kind]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.base + "/" + size + path
}

func (r Resolver) Poster(path string) string   { return r.URL(Poster, path, "") }
func (r Resolver) Backdrop(path string) string { return r.URL(Backdrop, path, "") }
func (r Resolver) Profile(path string) string  { return r.URL(Profile, path, "") }

func placeholder(kind Kind) string {
	switch kind {
	case Backdrop:
		return ""
	case Profile:
		return PlaceholderActor
	default:
		return PlaceholderMovie
	}
}

// FormatRuntime renders minutes as "45 min", "2h" or "2h 5min".
func FormatRuntime(minutes int) string {
	if minutes <= 0 {
		return "Unknown runtime"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dmin", h, m)
	}
}
