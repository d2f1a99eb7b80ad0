// Package assembly turns a graph request into a bounded, renderable graph:
// extraction from the backing store, co-occurrence inference, label cleanup,
// sizing and bounding, behind a fingerprint keyed cache shared by concurrent
// identical requests.
package assembly

import (
	"context"
	"errors"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/request"
	"github.com/kgview/kgview/pkg/storage"
)

var (
	ErrInvalidRequest        = request.ErrInvalidRequest
	ErrDataSourceUnavailable = storage.ErrDataSourceUnavailable
)

// IsRetryable reports whether err is transient and the request may be
// retried as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDataSourceUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// Assembler produces the graph for normalized request params. A returned
// graph is shared and must not be modified.
type Assembler interface {
	Assemble(ctx context.Context, params request.Params) (*graph.Graph, error)

	// Close releases resources held by this assembler and its delegates.
	Close()
}
