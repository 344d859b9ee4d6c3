// Package index implements the index operation: GET /Index answers 201 Created
// with a fixed greeting and records one informational log entry per call.
package index

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/index-api/internal/platform/logging"
)

const (
	// Path is the route of the index operation.
	Path = "/Index"
	// Message is the body returned on every call.
	Message = "Hello world!"

	logGetCalled = "Get called"
)

// Logger records informational messages.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...zap.Field)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(ctx context.Context, msg string, fields ...zap.Field)

// Info calls f.
func (f LoggerFunc) Info(ctx context.Context, msg string, fields ...zap.Field) {
	f(ctx, msg, fields...)
}

// Handler serves the index operation. It holds no mutable state and is safe for concurrent use.
type Handler struct {
	logger   Logger
	location string
}

// New returns a Handler logging through logger, or through the request-scoped
// zap logger when logger is nil. prefix is prepended to Path in the Location header.
func New(logger Logger, prefix string) *Handler {
	if logger == nil {
		logger = LoggerFunc(applog.LogInfo)
	}
	return &Handler{logger: logger, location: prefix + Path}
}

// Register wires the index operation into api.
func Register(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID:   "get-index",
		Method:        http.MethodGet,
		Path:          Path,
		Summary:       "Get the index greeting",
		Tags:          []string{"Index"},
		DefaultStatus: http.StatusCreated,
	}, h.Get)
}

// Get answers with Message and a Location pointing back at the operation.
func (h *Handler) Get(ctx context.Context, _ *struct{}) (*GetOutput, error) {
	h.logger.Info(ctx, logGetCalled, zap.String("path", Path))
	return &GetOutput{Location: h.location, Body: Message}, nil
}
