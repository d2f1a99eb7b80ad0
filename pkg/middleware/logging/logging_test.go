package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/middleware/requestid"
)

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel zapcore.Level
		wantLogs  int
	}{
		{name: "ok", path: "/v1/graph", status: http.StatusOK, wantLevel: zapcore.InfoLevel, wantLogs: 1},
		{name: "client_error", path: "/v1/graph", status: http.StatusBadRequest, wantLevel: zapcore.InfoLevel, wantLogs: 1},
		{name: "server_error", path: "/v1/graph", status: http.StatusServiceUnavailable, wantLevel: zapcore.ErrorLevel, wantLogs: 1},
		{name: "health_check", path: "/healthz", status: http.StatusOK, wantLogs: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			log, logs := logger.NewObserverLogger("debug")
			handler := requestid.HTTPHandler(HTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
			}), log))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, test.path, nil))
			require.Equal(t, test.status, rec.Code)

			entries := logs.FilterMessage(httpReqCompleteKey).All()
			require.Len(t, entries, test.wantLogs)
			if test.wantLogs == 0 {
				return
			}

			fields := entries[0].ContextMap()
			require.Equal(t, test.wantLevel, entries[0].Level)
			require.Equal(t, http.MethodGet, fields[httpMethodKey])
			require.Equal(t, test.path, fields[httpPathKey])
			require.EqualValues(t, test.status, fields[httpStatusKey])
			require.Equal(t, rec.Header().Get(requestid.RequestIDHeader), fields["request_id"])
		})
	}
}
