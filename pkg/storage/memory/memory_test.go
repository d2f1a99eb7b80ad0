package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func fixture() Dataset {
	return Dataset{
		Groups: []Group{{ID: 1, Name: "G1"}, {ID: 2, Name: "G2", Size: ptr(30.0)}},
		Actors: []Actor{
			{ID: 10, Name: "ana", GroupID: ptr(int64(1))},
			{ID: 11, Name: "bia", GroupID: ptr(int64(1))},
			{ID: 12, Name: "caio", GroupID: ptr(int64(2))},
			{ID: 13, Name: "loner"},
		},
		Roles: []Role{
			{ID: 100, Name: "lead", GroupID: ptr(int64(1))},
			{ID: 101, Name: "runner", GroupID: ptr(int64(2))},
		},
		ActorRoles: []ActorRole{
			{ActorID: 10, RoleID: 100},
			{ActorID: 12, RoleID: 101},
			// cross group assignment: only visible unfiltered
			{ActorID: 11, RoleID: 101},
			// dangling assignment
			{ActorID: 99, RoleID: 100},
		},
	}
}

func TestFetchDirectGraphFiltered(t *testing.T) {
	ds := New(WithDataset(fixture()))
	defer ds.Close()

	got, err := ds.FetchDirectGraph(context.Background(), storage.ForGroup(1))
	require.NoError(t, err)

	require.Equal(t, []storage.RawNode{
		{ID: "1", Label: "G1", Kind: graph.KindGroup},
		{ID: "10", Label: "ana", Kind: graph.KindActor, GroupID: 1},
		{ID: "11", Label: "bia", Kind: graph.KindActor, GroupID: 1},
		{ID: "100", Label: "lead", Kind: graph.KindRole, GroupID: 1},
	}, got.Nodes)
	require.Equal(t, []storage.RawEdge{
		{Source: "10", Target: "1", Weight: graph.DirectWeight, Relation: graph.BelongsTo},
		{Source: "11", Target: "1", Weight: graph.DirectWeight, Relation: graph.BelongsTo},
		{Source: "100", Target: "1", Weight: graph.DirectWeight, Relation: graph.RoleOf},
		{Source: "10", Target: "100", Weight: graph.DirectWeight, Relation: graph.Holds},
	}, got.Edges)
}

func TestFetchDirectGraphUnfiltered(t *testing.T) {
	ds := New(WithDataset(fixture()))

	got, err := ds.FetchDirectGraph(context.Background(), storage.AllGroups())
	require.NoError(t, err)
	require.Len(t, got.Nodes, 8)
	// 3 BelongsTo, 2 RoleOf, 3 Holds
	require.Len(t, got.Edges, 8)
	require.Contains(t, got.Nodes, storage.RawNode{ID: "13", Label: "loner", Kind: graph.KindActor})
	require.Contains(t, got.Nodes, storage.RawNode{ID: "2", Label: "G2", Kind: graph.KindGroup, Size: ptr(30.0)})
}

func TestFetchDirectGraphUnknownGroup(t *testing.T) {
	ds := New(WithDataset(fixture()))

	got, err := ds.FetchDirectGraph(context.Background(), storage.ForGroup(404))
	require.NoError(t, err)
	require.Empty(t, got.Nodes)
	require.Empty(t, got.Edges)
	require.NotNil(t, got.Nodes)
}

func TestFetchDirectGraphCancelled(t *testing.T) {
	ds := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ds.FetchDirectGraph(ctx, storage.AllGroups())
	require.ErrorIs(t, err, storage.ErrDataSourceUnavailable)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPutAndAssign(t *testing.T) {
	ds := New()
	ds.PutGroup(Group{ID: 5, Name: "G5"})
	ds.PutActor(Actor{ID: 1, Name: "x", GroupID: ptr(int64(5))})
	ds.PutRole(Role{ID: 2, Name: "r", GroupID: ptr(int64(5))})
	ds.Assign(1, 2)
	ds.Assign(1, 2)

	got, err := ds.FetchDirectGraph(context.Background(), storage.ForGroup(5))
	require.NoError(t, err)
	require.Len(t, got.Nodes, 3)
	require.Len(t, got.Edges, 3)
}

func TestParseDataset(t *testing.T) {
	doc := `
groups:
  - id: 1
    name: "{faccao,\"null\"}"
actors:
  - id: 7
    name: ze
    group_id: 1
    size: 14.5
roles:
  - id: 3
    name: lead
    group_id: 1
actor_roles:
  - actor_id: 7
    role_id: 3
`
	ds, err := ParseDataset(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, Dataset{
		Groups:     []Group{{ID: 1, Name: `{faccao,"null"}`}},
		Actors:     []Actor{{ID: 7, Name: "ze", GroupID: ptr(int64(1)), Size: ptr(14.5)}},
		Roles:      []Role{{ID: 3, Name: "lead", GroupID: ptr(int64(1))}},
		ActorRoles: []ActorRole{{ActorID: 7, RoleID: 3}},
	}, ds)

	_, err = ParseDataset(strings.NewReader("groups: [{id: 1, colour: red}]"))
	require.ErrorContains(t, err, "decode dataset")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"groups":[{"id":1,"name":"G1"}]}`), 0o600))

	ds, err := LoadFile(path)
	require.NoError(t, err)

	got, err := ds.FetchDirectGraph(context.Background(), storage.AllGroups())
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
