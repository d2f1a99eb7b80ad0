package mocks

import (
	"context"
	"time"

	"github.com/kgview/kgview/pkg/storage"
)

// slowGraphReader is a proxy to the actual reader except the fetches are slowed by fetchDelay.
// This allows simulating an extraction that outlives its callers or times out.
type slowGraphReader struct {
	fetchDelay time.Duration
	storage.GraphReader
}

// NewMockSlowGraphReader returns a wrapper of a reader that adds an artificial delay into every fetch.
// The delay honours ctx cancellation.
func NewMockSlowGraphReader(reader storage.GraphReader, fetchDelay time.Duration) storage.GraphReader {
	return &slowGraphReader{
		fetchDelay:  fetchDelay,
		GraphReader: reader,
	}
}

func (m *slowGraphReader) Close() {}

func (m *slowGraphReader) FetchDirectGraph(ctx context.Context, filter storage.GroupFilter) (*storage.RawGraph, error) {
	select {
	case <-ctx.Done():
		return nil, storage.Unavailable("slow reader", ctx.Err())
	case <-time.After(m.fetchDelay):
	}
	return m.GraphReader.FetchDirectGraph(ctx, filter)
}
