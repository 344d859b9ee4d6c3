// Package testutil holds helpers shared by HTTP tests.
package testutil

import (
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	applog "github.com/janisto/index-api/internal/platform/logging"
)

// ObserveLogs returns middleware that puts an observer-backed logger into every
// request context, together with the entries it records at level and above.
func ObserveLogs(level zapcore.Level) (func(http.Handler) http.Handler, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	logger := zap.New(core)
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(applog.WithLogger(r.Context(), logger)))
		})
	}
	return mw, logs
}
