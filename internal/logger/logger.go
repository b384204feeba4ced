// Package logger provides slog helpers for the app.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-chi/httplog/v3"

	"github.com/handsomefox/cinebrowse/internal/env"
)

// NewWriter logs JSON in production and text locally. level is usually a
// *slog.LevelVar so it can be changed at runtime.
func NewWriter(w io.Writer, level slog.Leveler, e env.Environment) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: e.IsProduction(),
		Level:     level,
	}
	if e.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RequestSchema is the httplog field schema: full ECS in production, the
// concise variant locally.
func RequestSchema(e env.Environment) *httplog.Schema {
	return httplog.SchemaECS.Concise(!e.IsProduction())
}

// NewRequestLogger builds the logger handed to httplog.RequestLogger. Its
// attributes are renamed to match RequestSchema.
func NewRequestLogger(w io.Writer, level slog.Leveler, e env.Environment) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: RequestSchema(e).ReplaceAttr,
	}
	if e.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel accepts slog level names in any case; empty means info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "nil")
	}
	return slog.String("err", err.Error())
}
