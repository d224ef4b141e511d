package middleware

import (
	"net/http"
	"strings"
)

// OriginMatcher parses a comma separated origin list. "*" or an empty list
// matches any origin.
func OriginMatcher(allowedOrigins string) func(origin string) bool {
	trimmed := strings.TrimSpace(allowedOrigins)
	if trimmed == "" || trimmed == "*" {
		return func(string) bool { return true }
	}

	origins := map[string]bool{}
	for _, o := range strings.Split(trimmed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	return func(origin string) bool { return origins[origin] }
}

// CORS allows the listed origins; "*" or an empty list allows any origin.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	allowed := OriginMatcher(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
