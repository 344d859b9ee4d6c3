package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a middleware applying the API's cross-origin policy. An empty
// origins list allows any origin. Location is exposed so browser clients can
// follow the URI returned with 201 responses.
func CORS(origins ...string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-Id",
			"traceparent",
		},
		ExposedHeaders: []string{"Link", "Location", "Retry-After", "X-Request-Id"},
		MaxAge:         300,
	})
}
