//go:generate mockgen -source storage.go -destination ../../internal/mocks/mock_storage.go -package mocks GraphReader

// Package storage defines the backing store contract of the graph pipeline:
// one call returning the direct relationships visible under a group filter.
package storage

import (
	"context"
	"strconv"

	"github.com/kgview/kgview/pkg/graph"
)

// GroupFilter restricts extraction to a single group. The zero value
// selects everything.
type GroupFilter struct {
	groupID int64
	set     bool
}

// AllGroups returns the filter that selects every group.
func AllGroups() GroupFilter {
	return GroupFilter{}
}

// ForGroup returns the filter that selects group id and what hangs off it.
func ForGroup(id int64) GroupFilter {
	return GroupFilter{groupID: id, set: true}
}

// FilterFromID is ForGroup for an optional id.
func FilterFromID(id *int64) GroupFilter {
	if id == nil {
		return AllGroups()
	}
	return ForGroup(*id)
}

// GroupID returns the selected group, if any.
func (f GroupFilter) GroupID() (int64, bool) {
	return f.groupID, f.set
}

func (f GroupFilter) String() string {
	if !f.set {
		return "*"
	}
	return strconv.FormatInt(f.groupID, 10)
}

// RawNode is a node as the store knows it. ID is the store's own key, unique
// within Kind only.
type RawNode struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Kind  graph.Kind `json:"kind"`

	// GroupID is the group an actor or role belongs to. It is 0 for groups
	// themselves and for nodes without a group.
	GroupID int64 `json:"groupId"`

	// Size, when present, overrides degree based sizing.
	Size *float64 `json:"size,omitempty"`
}

// RawEdge is a direct relationship between two store keys. The kinds of the
// endpoints follow from Relation.
type RawEdge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Weight   float64        `json:"weight"`
	Relation graph.Relation `json:"relation"`
}

// RawGraph is the unprocessed result of an extraction.
type RawGraph struct {
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
}

// GraphReader is the backing store of the pipeline.
type GraphReader interface {
	// FetchDirectGraph returns every node of the three entity kinds and every
	// direct edge visible under filter. A filter that matches nothing yields
	// an empty graph, not an error. Failures wrap ErrDataSourceUnavailable.
	FetchDirectGraph(ctx context.Context, filter GroupFilter) (*RawGraph, error)

	// Close releases the resources held by the reader.
	Close()
}
