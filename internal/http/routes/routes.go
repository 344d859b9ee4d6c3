// Package routes wires every HTTP endpoint of the service.
package routes

import (
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/index-api/internal/http/health"
	"github.com/janisto/index-api/internal/http/index"
	"github.com/janisto/index-api/internal/platform/respond"
)

// Options carries the dependencies of the non-huma endpoints.
type Options struct {
	// Version is reported by /health.
	Version string
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// Logger overrides the index operation's logger.
	Logger index.Logger
}

// Register wires the plain chi endpoints into router and the typed operations into api.
func Register(router chi.Router, api huma.API, opts Options) {
	prefix := apiPrefix(api)

	router.Get("/health", health.Handler(opts.Version))
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRedirect(w, r, prefix+index.Path, http.StatusFound)
	})

	index.Register(api, index.New(opts.Logger, prefix))
}

func apiPrefix(api huma.API) string {
	for _, s := range api.OpenAPI().Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return ""
}
