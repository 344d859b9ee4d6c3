package middleware

import (
	"net/http"
	"strings"
)

// Vary returns middleware that lists Accept in the Vary header, since the
// response format (JSON or CBOR) is negotiated from it. Values already present
// are not duplicated.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			EnsureVary(w.Header(), "Accept")
			next.ServeHTTP(w, r)
		})
	}
}

// EnsureVary adds each value to the Vary header unless it is already listed (case-insensitive).
func EnsureVary(h http.Header, values ...string) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || varyContains(h, v) {
			continue
		}
		h.Add("Vary", v)
	}
}

func varyContains(h http.Header, value string) bool {
	for _, line := range h.Values("Vary") {
		for part := range strings.SplitSeq(line, ",") {
			if strings.EqualFold(strings.TrimSpace(part), value) {
				return true
			}
		}
	}
	return false
}
