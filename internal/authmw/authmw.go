// Package authmw provides HTTP middleware for function-key authentication.
package authmw

import (
	"crypto/subtle"
	"net/http"
)

const (
	// HeaderName is the header the Functions host reads the key from.
	HeaderName = "x-functions-key"
	// QueryParam is the query-string alternative to HeaderName.
	QueryParam = "code"
)

// FunctionKey returns middleware that requires the request to carry key in
// the x-functions-key header or the code query parameter. Comparison uses
// constant-time equality. An empty key disables the check, for deployments
// where the Functions host enforces it in front of the handler.
func FunctionKey(key string) func(http.Handler) http.Handler {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderName)
			if got == "" {
				got = r.URL.Query().Get(QueryParam)
			}

			if got == "" {
				writeUnauthorized(w, `{"error":"missing function key"}`)
				return
			}

			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				writeUnauthorized(w, `{"error":"invalid function key"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(body))
}
