// Package request models what a caller asks the assembly pipeline for and
// derives the canonical fingerprint that identifies the answer in the cache.
package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultIncludeCoOccurrence = true
	DefaultMaxInferredPairs    = 8000
	DefaultMaxNodes            = 2000
	DefaultMaxEdges            = 4000
)

var ErrInvalidRequest = errors.New("invalid graph request")

// RequestSpec is a graph request as received. Unset fields take the
// server defaults during Normalize.
type RequestSpec struct {
	// GroupID restricts the graph to a single group and what hangs off it.
	GroupID *int64 `json:"group_id,omitempty" validate:"omitempty,gt=0"`

	IncludeCoOccurrence *bool `json:"include_co,omitempty"`
	MaxInferredPairs    *int  `json:"max_pairs,omitempty" validate:"omitempty,gte=0,lte=1000000"`
	MaxNodes            *int  `json:"max_nodes,omitempty" validate:"omitempty,gte=1,lte=20000"`
	MaxEdges            *int  `json:"max_edges,omitempty" validate:"omitempty,gte=0,lte=50000"`

	// BypassCache skips both the cache read and the cache write for this request.
	BypassCache bool `json:"-"`
}

// Defaults are the values used for the fields a RequestSpec leaves unset.
type Defaults struct {
	IncludeCoOccurrence bool
	MaxInferredPairs    int
	MaxNodes            int
	MaxEdges            int
}

func DefaultDefaults() Defaults {
	return Defaults{
		IncludeCoOccurrence: DefaultIncludeCoOccurrence,
		MaxInferredPairs:    DefaultMaxInferredPairs,
		MaxNodes:            DefaultMaxNodes,
		MaxEdges:            DefaultMaxEdges,
	}
}

// Params are the effective values of a request once defaults are applied.
type Params struct {
	GroupID             *int64
	IncludeCoOccurrence bool
	MaxInferredPairs    int
	MaxNodes            int
	MaxEdges            int
	BypassCache         bool
}

// Normalize applies d to every unset field. The pair budget is zeroed when
// co-occurrence is disabled since it cannot affect the result.
func (r *RequestSpec) Normalize(d Defaults) Params {
	p := Params{
		IncludeCoOccurrence: d.IncludeCoOccurrence,
		MaxInferredPairs:    d.MaxInferredPairs,
		MaxNodes:            d.MaxNodes,
		MaxEdges:            d.MaxEdges,
	}
	if r == nil {
		return p.canonical()
	}

	if r.GroupID != nil {
		id := *r.GroupID
		p.GroupID = &id
	}
	if r.IncludeCoOccurrence != nil {
		p.IncludeCoOccurrence = *r.IncludeCoOccurrence
	}
	if r.MaxInferredPairs != nil {
		p.MaxInferredPairs = *r.MaxInferredPairs
	}
	if r.MaxNodes != nil {
		p.MaxNodes = *r.MaxNodes
	}
	if r.MaxEdges != nil {
		p.MaxEdges = *r.MaxEdges
	}
	p.BypassCache = r.BypassCache

	return p.canonical()
}

func (p Params) canonical() Params {
	if !p.IncludeCoOccurrence {
		p.MaxInferredPairs = 0
	}
	return p
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the explicitly set fields against their accepted ranges.
// The returned error wraps ErrInvalidRequest.
func (r *RequestSpec) Validate() error {
	if r == nil {
		return nil
	}

	err := getValidator().Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}
