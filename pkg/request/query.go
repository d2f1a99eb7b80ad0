package request

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names. faccao_id is the name used by existing clients and
// is accepted as an alias of group_id.
const (
	ParamGroupID             = "group_id"
	ParamGroupIDAlias        = "faccao_id"
	ParamIncludeCoOccurrence = "include_co"
	ParamMaxInferredPairs    = "max_pairs"
	ParamMaxNodes            = "max_nodes"
	ParamMaxEdges            = "max_edges"
	ParamCache               = "cache"
)

// ParseQuery builds a RequestSpec from URL query values. Absent or empty
// parameters are left unset. cache=false requests a bypass. The result is
// validated; every error wraps ErrInvalidRequest.
func ParseQuery(values url.Values) (*RequestSpec, error) {
	spec := &RequestSpec{}

	group := firstNonEmpty(values, ParamGroupID, ParamGroupIDAlias)
	if group != "" {
		id, err := strconv.ParseInt(group, 10, 64)
		if err != nil {
			return nil, paramError(ParamGroupID, group)
		}
		spec.GroupID = &id
	}

	var err error
	if spec.IncludeCoOccurrence, err = parseBool(values, ParamIncludeCoOccurrence); err != nil {
		return nil, err
	}
	if spec.MaxInferredPairs, err = parseInt(values, ParamMaxInferredPairs); err != nil {
		return nil, err
	}
	if spec.MaxNodes, err = parseInt(values, ParamMaxNodes); err != nil {
		return nil, err
	}
	if spec.MaxEdges, err = parseInt(values, ParamMaxEdges); err != nil {
		return nil, err
	}

	useCache, err := parseBool(values, ParamCache)
	if err != nil {
		return nil, err
	}
	spec.BypassCache = useCache != nil && !*useCache

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func firstNonEmpty(values url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(values url.Values, name string) (*bool, error) {
	raw := firstNonEmpty(values, name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, paramError(name, raw)
	}
	return &b, nil
}

func parseInt(values url.Values, name string) (*int, error) {
	raw := firstNonEmpty(values, name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, paramError(name, raw)
	}
	return &n, nil
}

func paramError(name, raw string) error {
	return fmt.Errorf("%w: %s has invalid value %q", ErrInvalidRequest, name, raw)
}
