package handlers

import "net/http"

// MiddlewareNoStore keeps browsers and proxies from caching API responses;
// the catalog cache lives server side.
func MiddlewareNoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
