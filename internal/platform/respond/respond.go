// Package respond renders RFC 9457 problem details for failures that happen
// outside huma operations (unknown routes, wrong methods, panics, throttling)
// so every error the API returns has the same shape and content negotiation.
package respond

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/index-api/internal/platform/logging"
	appmiddleware "github.com/janisto/index-api/internal/platform/middleware"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	msgNotFound        = "resource not found"
	msgInternalError   = "internal server error"
	msgTooManyRequests = "rate limit exceeded"
)

// WriteProblem writes a problem document with the given status and detail,
// encoded as CBOR when the Accept header prefers it and JSON otherwise.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := &huma.ErrorModel{
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("detail", detail),
		zap.String("path", r.URL.Path),
	}
	switch {
	case status >= http.StatusInternalServerError:
		applog.LogError(r.Context(), "request failed", nil, fields...)
	case status >= http.StatusBadRequest:
		applog.LogWarn(r.Context(), "request rejected", fields...)
	}

	var (
		body        []byte
		err         error
		contentType string
	)
	if selectFormat(r.Header.Get("Accept")) == formatCBOR {
		contentType = contentTypeProblemCBOR
		body, err = cbor.Marshal(problem)
	} else {
		contentType = contentTypeProblemJSON
		body, err = marshalJSON(problem)
	}
	if err != nil {
		applog.LogError(r.Context(), "failed to encode problem", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	h := w.Header()
	appmiddleware.EnsureVary(h, "Accept")
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		applog.LogWarn(r.Context(), "failed to write problem body", zap.Error(err))
	}
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NotFoundHandler answers unknown routes with a 404 problem.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler answers a known route requested with the wrong method
// with a 405 problem and an Allow header listing the registered methods.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowHeader(r); allow != "" {
			w.Header().Set("Allow", allow)
		}
		WriteProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// WriteTooManyRequests writes a 429 problem with Retry-After rounded up to whole seconds (minimum 1).
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	secs := max(int(math.Ceil(retryAfter.Seconds())), 1)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	WriteProblem(w, r, http.StatusTooManyRequests, msgTooManyRequests)
}

// WriteRedirect sends a redirect to location with the given 3xx status.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string, status int) {
	w.Header().Set("Location", location)
	w.WriteHeader(status)
	applog.LogInfo(r.Context(), "redirect", zap.String("from", r.URL.Path), zap.String("to", location), zap.Int("status", status))
}

// responseWriter records whether the header has been sent so Recoverer can
// avoid writing a second status line.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Recoverer converts panics into 500 problems and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity, as net/http does
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				applog.LogError(r.Context(), "panic recovered", err, zap.ByteString("stack", debug.Stack()))
				if rw.wroteHeader {
					return
				}
				WriteProblem(rw, r, http.StatusInternalServerError, msgInternalError)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// candidateMethods is the order methods appear in the Allow header.
var candidateMethods = [...]string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// allowHeader lists the methods chi's route tree accepts for the request path.
// HEAD is implied by GET since the router answers HEAD through its GET handlers.
func allowHeader(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return ""
	}
	path := cmp.Or(rctx.RoutePath, r.URL.RawPath, r.URL.Path, "/")

	matched := make(map[string]bool, len(candidateMethods))
	for _, m := range candidateMethods {
		matched[m] = rctx.Routes.Match(chi.NewRouteContext(), m, path)
	}
	matched[http.MethodHead] = matched[http.MethodHead] || matched[http.MethodGet]

	allow := make([]string, 0, len(candidateMethods))
	for _, m := range candidateMethods {
		if matched[m] {
			allow = append(allow, m)
		}
	}
	return strings.Join(allow, ", ")
}
