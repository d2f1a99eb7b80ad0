// Package server contains the HTTP adapter serving assembled graphs.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/request"
	serverErrors "github.com/kgview/kgview/pkg/server/errors"
)

const (
	GraphPath = "/v1/graph"

	// LegacyGraphPath is the route earlier clients used for the same graph.
	LegacyGraphPath = "/v1/graph/membros"

	HealthPath = "/healthz"
)

// GraphAssembler builds the graph for a request.
type GraphAssembler interface {
	Assemble(ctx context.Context, spec *request.RequestSpec) (*graph.Graph, error)
}

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	assembler  GraphAssembler
	cacheTTL   time.Duration
	retryAfter time.Duration
	checks     map[string]ReadinessCheck
	logger     logger.Logger
}

type ServerOption func(s *Server)

func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCacheTTL sets the max-age advertised to clients. Zero disables
// client side caching.
func WithCacheTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		s.cacheTTL = ttl
	}
}

// WithRetryAfter sets the Retry-After hint of retryable failures.
func WithRetryAfter(d time.Duration) ServerOption {
	return func(s *Server) {
		s.retryAfter = d
	}
}

// WithReadinessCheck adds a dependency probed by the health endpoint.
func WithReadinessCheck(name string, check ReadinessCheck) ServerOption {
	return func(s *Server) {
		s.checks[name] = check
	}
}

func NewServer(assembler GraphAssembler, opts ...ServerOption) *Server {
	s := &Server{
		assembler:  assembler,
		retryAfter: serverErrors.DefaultRetryAfter,
		checks:     make(map[string]ReadinessCheck),
		logger:     logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler routes the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+GraphPath, s.GetGraph)
	mux.HandleFunc("GET "+LegacyGraphPath, s.GetGraph)
	mux.HandleFunc("GET "+HealthPath, s.Health)
	return mux
}

// GetGraph serves the graph described by the query string. The body is
// tagged with a strong ETag and a matching If-None-Match yields 304.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	spec, err := request.ParseQuery(r.URL.Query())
	if err != nil {
		serverErrors.HandleError(err, s.retryAfter).Write(w)
		return
	}

	g, err := s.assembler.Assemble(ctx, spec)
	if err != nil {
		encoded := serverErrors.HandleError(err, s.retryAfter)
		if encoded.Code == serverErrors.CodeInternal {
			s.logger.ErrorWithContext(ctx, "graph request failed", zap.Error(err))
		}
		encoded.Write(w)
		return
	}

	body, err := json.Marshal(g)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "graph encoding failed", zap.Error(err))
		serverErrors.NewInternalError().Write(w)
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	h := w.Header()
	h.Set("ETag", etag)
	if spec.BypassCache || s.cacheTTL <= 0 {
		h.Set("Cache-Control", "no-store")
	} else {
		h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.cacheTTL/time.Second)))
	}

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// etagMatches implements the weak comparison If-None-Match calls for.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports SERVING when every readiness check passes.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "SERVING"}
	status := http.StatusOK

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			s.logger.WarnWithContext(r.Context(), "readiness check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = err.Error()
			resp.Status = "NOT_SERVING"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
