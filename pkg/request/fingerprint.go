package request

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// fingerprintVersion prefixes every hash so that a change in the canonical
// form never collides with keys written by an older build.
const fingerprintVersion = "v1"

type hasher interface {
	WriteString(value string) error
}

// KeyHasher computes stable 64 bit keys with xxhash.
type KeyHasher struct {
	hasher *xxhash.Digest
}

func NewKeyHasher(xhash *xxhash.Digest) *KeyHasher {
	return &KeyHasher{hasher: xhash}
}

// WriteString writes the provided string to the hash.
func (k *KeyHasher) WriteString(value string) error {
	_, err := k.hasher.WriteString(value)
	return err
}

func (k *KeyHasher) Key() uint64 {
	return k.hasher.Sum64()
}

type field struct {
	name  string
	value string
}

// fields is the canonical tuple for p. BypassCache controls cache use, not
// cache identity, and is left out.
func (p Params) fields() []field {
	group := "*"
	if p.GroupID != nil {
		group = strconv.FormatInt(*p.GroupID, 10)
	}

	fs := []field{
		{"group", group},
		{"include_co", strconv.FormatBool(p.IncludeCoOccurrence)},
		{"max_edges", strconv.Itoa(p.MaxEdges)},
		{"max_nodes", strconv.Itoa(p.MaxNodes)},
		{"max_pairs", strconv.Itoa(p.MaxInferredPairs)},
	}
	slices.SortFunc(fs, func(a, b field) int {
		return cmp.Compare(a.name, b.name)
	})
	return fs
}

func (p Params) appendTo(h hasher) error {
	if err := h.WriteString(fingerprintVersion + "/"); err != nil {
		return err
	}
	for _, f := range p.canonical().fields() {
		if err := h.WriteString(f.name + "=" + f.value + ";"); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint returns the 16 character hex hash identifying the effective
// request. Params that only differ in BypassCache share a fingerprint.
func (p Params) Fingerprint() string {
	h := NewKeyHasher(xxhash.New())
	// xxhash.Digest never fails to write
	_ = p.appendTo(h)
	return fmt.Sprintf("%016x", h.Key())
}
