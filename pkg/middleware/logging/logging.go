// Package logging logs one line per served HTTP request.
package logging

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kgview/kgview/pkg/logger"
)

const (
	httpMethodKey      = "http_method"
	httpPathKey        = "http_path"
	httpStatusKey      = "http_status"
	traceIDKey         = "trace_id"
	userAgentKey       = "user_agent"
	queryDurationKey   = "query_duration_ms"
	httpReqCompleteKey = "http_req_complete"

	healthCheckPath = "/healthz"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// HTTPHandler logs every completed request except health checks. Server
// errors are logged at ERROR, everything else at INFO.
func HTTPHandler(next http.Handler, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == healthCheckPath {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String(httpMethodKey, r.Method),
			zap.String(httpPathKey, r.URL.Path),
			zap.Int(httpStatusKey, rec.status),
			zap.String(userAgentKey, r.UserAgent()),
			zap.String(queryDurationKey, strconv.FormatInt(time.Since(start).Milliseconds(), 10)),
		}
		if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.HasTraceID() {
			fields = append(fields, zap.String(traceIDKey, spanCtx.TraceID().String()))
		}

		if rec.status >= http.StatusInternalServerError {
			l.ErrorWithContext(r.Context(), httpReqCompleteKey, fields...)
			return
		}
		l.InfoWithContext(r.Context(), httpReqCompleteKey, fields...)
	})
}
