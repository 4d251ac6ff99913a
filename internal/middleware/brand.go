package middleware

import (
	"net/http"
	"strings"
)

// Brand resolves the request's brand from the Host header using a
// host-to-brand map and stores it on the context. Unknown hosts fall back to
// the default brand.
func Brand(hosts map[string]string, defaultBrand string) func(http.Handler) http.Handler {
	normalized := make(map[string]string, len(hosts))
	for host, brand := range hosts {
		normalized[strings.ToLower(host)] = brand
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(r.Host)
			if i := strings.IndexByte(host, ':'); i >= 0 {
				host = host[:i]
			}
			brand, ok := normalized[host]
			if !ok {
				brand = defaultBrand
			}
			next.ServeHTTP(w, r.WithContext(WithBrand(r.Context(), brand)))
		})
	}
}
