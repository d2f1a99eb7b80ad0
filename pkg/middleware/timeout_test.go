package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutHandler(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "bounded", timeout: time.Second, wantDeadline: true},
		{name: "disabled", timeout: 0, wantDeadline: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var deadline time.Time
			var ok bool
			h := NewTimeoutHandler(test.timeout).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				deadline, ok = r.Context().Deadline()
			}))

			start := time.Now()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, test.wantDeadline, ok)
			if ok {
				require.WithinDuration(t, start.Add(test.timeout), deadline, 500*time.Millisecond)
			}
		})
	}
}
