package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/cinebrowse/internal/query"
)

func TestSPA(t *testing.T) {
	dist := fstest.MapFS{
		"index.html":       {Data: []byte("<html>app</html>")},
		"assets/app-1a.js": {Data: []byte("console.log(1)")},
		"favicon.ico":      {Data: []byte("ico")},
	}
	h, err := SPA(dist)
	require.NoError(t, err)

	tests := []struct {
		path   string
		status int
		body   string
		cache  string
	}{
		{"/", http.StatusOK, "<html>app</html>", "no-cache"},
		{"/movie/603", http.StatusOK, "<html>app</html>", "no-cache"},
		{"/assets/app-1a.js", http.StatusOK, "console.log(1)", "public, max-age=31536000, immutable"},
		{"/favicon.ico", http.StatusOK, "ico", "public, max-age=3600"},
		{"/missing.png", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			assert.Equal(t, tt.cache, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestSPARequiresIndex(t *testing.T) {
	_, err := SPA(fstest.MapFS{})
	require.Error(t, err)
}

func TestLocation(t *testing.T) {
	st := query.Default()
	assert.Equal(t, "/search", Location("/search", st, query.ModeSearch))

	st.SearchText = "la haine"
	st.Page = 2
	assert.Equal(t, "/search?page=2&q=la+haine", Location("/search", st, query.ModeSearch))
}
