package request

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintFormat(t *testing.T) {
	fp := (&RequestSpec{}).Normalize(DefaultDefaults()).Fingerprint()
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), fp)
}

func TestFingerprintIgnoresBypass(t *testing.T) {
	d := DefaultDefaults()
	withCache := &RequestSpec{GroupID: ptr(int64(3)), MaxNodes: ptr(10)}
	bypass := &RequestSpec{GroupID: ptr(int64(3)), MaxNodes: ptr(10), BypassCache: true}

	require.Equal(t, withCache.Normalize(d).Fingerprint(), bypass.Normalize(d).Fingerprint())
}

func TestFingerprintEffectiveValues(t *testing.T) {
	d := DefaultDefaults()

	implicit := (&RequestSpec{}).Normalize(d).Fingerprint()
	explicit := (&RequestSpec{
		IncludeCoOccurrence: ptr(true),
		MaxInferredPairs:    ptr(DefaultMaxInferredPairs),
		MaxNodes:            ptr(DefaultMaxNodes),
		MaxEdges:            ptr(DefaultMaxEdges),
	}).Normalize(d).Fingerprint()
	require.Equal(t, implicit, explicit, "defaults spelled out must hash like defaults left unset")

	noInferenceA := (&RequestSpec{IncludeCoOccurrence: ptr(false), MaxInferredPairs: ptr(1)}).Normalize(d).Fingerprint()
	noInferenceB := (&RequestSpec{IncludeCoOccurrence: ptr(false), MaxInferredPairs: ptr(99)}).Normalize(d).Fingerprint()
	require.Equal(t, noInferenceA, noInferenceB)

	// canonical() applies to hand built params too
	require.Equal(t, noInferenceA, Params{MaxInferredPairs: 5, MaxNodes: DefaultMaxNodes, MaxEdges: DefaultMaxEdges}.Fingerprint())
}

func TestFingerprintDistinguishesFields(t *testing.T) {
	d := DefaultDefaults()
	specs := []*RequestSpec{
		{},
		{GroupID: ptr(int64(1))},
		{GroupID: ptr(int64(2))},
		{IncludeCoOccurrence: ptr(false)},
		{MaxInferredPairs: ptr(1)},
		{MaxNodes: ptr(1)},
		{MaxEdges: ptr(1)},
	}

	seen := map[string]int{}
	for i, spec := range specs {
		fp := spec.Normalize(d).Fingerprint()
		prev, dup := seen[fp]
		require.False(t, dup, "spec %d collides with spec %d", i, prev)
		seen[fp] = i
	}
}

func TestFingerprintStable(t *testing.T) {
	p := Params{GroupID: ptr(int64(42)), IncludeCoOccurrence: true, MaxInferredPairs: 8, MaxNodes: 20, MaxEdges: 40}
	first := p.Fingerprint()
	for range 100 {
		require.Equal(t, first, p.Fingerprint())
	}
}
