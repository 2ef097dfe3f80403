package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// ModeAPIKey is the only mode that enforces anything.
const ModeAPIKey = "apikey"

// APIKey returns middleware enforcing API key authentication on every request
// it wraps. onReject, when non-nil, is called once per rejected request.
func APIKey(mode, header, key string, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if mode != ModeAPIKey {
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" || len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `APIKey header="`+header+`"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
