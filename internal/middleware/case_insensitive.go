package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitive lowercases paths under the given prefixes, matched in any
// case. Used for the short links printed as QR codes, where upper case
// encodes more compactly. Example: /Q/OFFICE1/12 and /q/office1/12 both work.
func CaseInsensitive(prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lower := strings.ToLower(r.URL.Path)
			for _, p := range prefixes {
				if strings.HasPrefix(lower, p) {
					r.URL.Path = lower
					r.URL.RawPath = ""
					break
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
