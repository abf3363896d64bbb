package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const CallbackTokenHeader = "X-Callback-Token"

// CallbackToken rejects requests whose X-Callback-Token header does not match
// token. An empty token disables the check.
func CallbackToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(CallbackTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized callback"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
