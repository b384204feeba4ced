package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/cinebrowse/internal/env"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWriterProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	var lvl slog.LevelVar
	log := NewWriter(&buf, &lvl, env.Production)

	log.Debug("hidden")
	assert.Zero(t, buf.Len(), "debug is below the default level")

	lvl.Set(slog.LevelDebug)
	log.Debug("shown", Error(errors.New("boom")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "boom", rec["err"])
	assert.Contains(t, rec, "source")
}

func TestNewWriterLocalIsText(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, slog.LevelInfo, env.Local).Info("hello", Error(nil))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "err=nil")
}

func TestNewRequestLoggerProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	NewRequestLogger(&buf, slog.LevelInfo, env.Production).Info("GET /api/home")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Contains(t, buf.String(), "GET /api/home")
	assert.NotNil(t, RequestSchema(env.Local))
}
