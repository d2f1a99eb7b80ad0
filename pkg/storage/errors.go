package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDataSourceUnavailable is returned when the backing store call fails
	// or times out. Callers should treat it as retryable.
	ErrDataSourceUnavailable = errors.New("data source unavailable")

	ErrNotFound = errors.New("not found")

	// ErrInvalidGroupFilter is returned for filters the store cannot express.
	ErrInvalidGroupFilter = errors.New("invalid group filter")
)

// Unavailable wraps err into ErrDataSourceUnavailable, keeping err in the
// chain. It returns nil for a nil err.
func Unavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDataSourceUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", ErrDataSourceUnavailable, source, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrDataSourceUnavailable, source, err)
}
