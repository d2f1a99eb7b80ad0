package request

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestNormalize(t *testing.T) {
	d := DefaultDefaults()

	t.Run("nil_spec_takes_defaults", func(t *testing.T) {
		var spec *RequestSpec
		require.Equal(t, Params{
			IncludeCoOccurrence: true,
			MaxInferredPairs:    DefaultMaxInferredPairs,
			MaxNodes:            DefaultMaxNodes,
			MaxEdges:            DefaultMaxEdges,
		}, spec.Normalize(d))
	})

	t.Run("explicit_values_win", func(t *testing.T) {
		spec := &RequestSpec{
			GroupID:          ptr(int64(7)),
			MaxInferredPairs: ptr(10),
			MaxNodes:         ptr(5),
			MaxEdges:         ptr(0),
			BypassCache:      true,
		}
		p := spec.Normalize(d)
		require.Equal(t, int64(7), *p.GroupID)
		require.True(t, p.IncludeCoOccurrence)
		require.Equal(t, 10, p.MaxInferredPairs)
		require.Equal(t, 5, p.MaxNodes)
		require.Equal(t, 0, p.MaxEdges)
		require.True(t, p.BypassCache)

		*spec.GroupID = 8
		require.Equal(t, int64(7), *p.GroupID, "params must not alias the spec")
	})

	t.Run("pairs_zeroed_without_inference", func(t *testing.T) {
		spec := &RequestSpec{IncludeCoOccurrence: ptr(false), MaxInferredPairs: ptr(100)}
		require.Equal(t, 0, spec.Normalize(d).MaxInferredPairs)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    *RequestSpec
		wantErr string
	}{
		{name: "empty", spec: &RequestSpec{}},
		{name: "nil", spec: nil},
		{name: "upper_bounds", spec: &RequestSpec{MaxNodes: ptr(20000), MaxEdges: ptr(50000), MaxInferredPairs: ptr(1000000)}},
		{name: "zero_edges_and_pairs", spec: &RequestSpec{MaxEdges: ptr(0), MaxInferredPairs: ptr(0)}},
		{name: "zero_nodes", spec: &RequestSpec{MaxNodes: ptr(0)}, wantErr: "max_nodes must be at least 1"},
		{name: "too_many_nodes", spec: &RequestSpec{MaxNodes: ptr(20001)}, wantErr: "max_nodes must be at most 20000"},
		{name: "negative_edges", spec: &RequestSpec{MaxEdges: ptr(-1)}, wantErr: "max_edges must be at least 0"},
		{name: "too_many_pairs", spec: &RequestSpec{MaxInferredPairs: ptr(1000001)}, wantErr: "max_pairs must be at most 1000000"},
		{name: "group_zero", spec: &RequestSpec{GroupID: ptr(int64(0))}, wantErr: "group_id must be greater than 0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.spec.Validate()
			if test.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.ErrorContains(t, err, test.wantErr)
		})
	}
}
