package memory

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"sigs.k8s.io/yaml"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/storage"
)

var tracer = otel.Tracer("kgview/pkg/storage/memory")

// Group, Actor, Role and ActorRole mirror the rows of the SQL schema.
type Group struct {
	ID   int64    `json:"id"`
	Name string   `json:"name"`
	Size *float64 `json:"size,omitempty"`
}

type Actor struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	GroupID *int64   `json:"group_id,omitempty"`
	Size    *float64 `json:"size,omitempty"`
}

type Role struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	GroupID *int64 `json:"group_id,omitempty"`
}

type ActorRole struct {
	ActorID int64 `json:"actor_id"`
	RoleID  int64 `json:"role_id"`
}

// Dataset is the full content of a memory backend. It is also the format of
// seed files, in YAML or JSON.
type Dataset struct {
	Groups     []Group     `json:"groups"`
	Actors     []Actor     `json:"actors"`
	Roles      []Role      `json:"roles"`
	ActorRoles []ActorRole `json:"actor_roles"`
}

// StorageOption defines a function type used for configuring a [MemoryBackend] instance.
type StorageOption func(*MemoryBackend)

// WithDataset seeds the backend.
func WithDataset(ds Dataset) StorageOption {
	return func(m *MemoryBackend) {
		m.load(ds)
	}
}

// MemoryBackend is an ephemeral, in-process [storage.GraphReader]. It applies
// the same group filter semantics as the SQL engines. Instances may be
// safely shared by multiple goroutines.
type MemoryBackend struct {
	mu sync.RWMutex

	groups     map[int64]Group // GUARDED_BY(mu).
	actors     map[int64]Actor // GUARDED_BY(mu).
	roles      map[int64]Role  // GUARDED_BY(mu).
	actorRoles map[ActorRole]struct{}
}

var _ storage.GraphReader = (*MemoryBackend)(nil)

// New creates a new empty [MemoryBackend].
func New(opts ...StorageOption) *MemoryBackend {
	m := &MemoryBackend{
		groups:     make(map[int64]Group),
		actors:     make(map[int64]Actor),
		roles:      make(map[int64]Role),
		actorRoles: make(map[ActorRole]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParseDataset decodes a YAML or JSON seed document.
func ParseDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	data, err := io.ReadAll(r)
	if err != nil {
		return ds, fmt.Errorf("read dataset: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &ds); err != nil {
		return ds, fmt.Errorf("decode dataset: %w", err)
	}
	return ds, nil
}

// LoadFile seeds a new backend from the dataset file at path.
func LoadFile(path string, opts ...StorageOption) (*MemoryBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ParseDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(append(opts, WithDataset(ds))...), nil
}

func (m *MemoryBackend) load(ds Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range ds.Groups {
		m.groups[g.ID] = g
	}
	for _, a := range ds.Actors {
		m.actors[a.ID] = a
	}
	for _, r := range ds.Roles {
		m.roles[r.ID] = r
	}
	for _, ar := range ds.ActorRoles {
		m.actorRoles[ar] = struct{}{}
	}
}

// PutGroup inserts or replaces a group.
func (m *MemoryBackend) PutGroup(g Group) {
	m.load(Dataset{Groups: []Group{g}})
}

// PutActor inserts or replaces an actor.
func (m *MemoryBackend) PutActor(a Actor) {
	m.load(Dataset{Actors: []Actor{a}})
}

// PutRole inserts or replaces a role.
func (m *MemoryBackend) PutRole(r Role) {
	m.load(Dataset{Roles: []Role{r}})
}

// Assign records that actor holds role.
func (m *MemoryBackend) Assign(actorID, roleID int64) {
	m.load(Dataset{ActorRoles: []ActorRole{{ActorID: actorID, RoleID: roleID}}})
}

// Close does not do anything for [MemoryBackend].
func (m *MemoryBackend) Close() {}

// FetchDirectGraph see [storage.GraphReader].FetchDirectGraph.
func (m *MemoryBackend) FetchDirectGraph(ctx context.Context, filter storage.GroupFilter) (*storage.RawGraph, error) {
	_, span := tracer.Start(ctx, "memory.FetchDirectGraph")
	defer span.End()
	span.SetAttributes(attribute.String("group", filter.String()))

	if err := ctx.Err(); err != nil {
		return nil, storage.Unavailable("memory", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	gid, filtered := filter.GroupID()
	inScope := func(groupID *int64) bool {
		if !filtered {
			return true
		}
		return groupID != nil && *groupID == gid
	}

	out := &storage.RawGraph{Nodes: []storage.RawNode{}, Edges: []storage.RawEdge{}}

	for _, g := range sortedValues(m.groups) {
		if filtered && g.ID != gid {
			continue
		}
		out.Nodes = append(out.Nodes, storage.RawNode{
			ID: itoa(g.ID), Label: g.Name, Kind: graph.KindGroup, Size: g.Size,
		})
	}

	for _, a := range sortedValues(m.actors) {
		if !inScope(a.GroupID) {
			continue
		}
		out.Nodes = append(out.Nodes, storage.RawNode{
			ID: itoa(a.ID), Label: a.Name, Kind: graph.KindActor, GroupID: deref(a.GroupID), Size: a.Size,
		})
		if a.GroupID != nil {
			out.Edges = append(out.Edges, direct(a.ID, *a.GroupID, graph.BelongsTo))
		}
	}

	for _, r := range sortedValues(m.roles) {
		if !inScope(r.GroupID) {
			continue
		}
		out.Nodes = append(out.Nodes, storage.RawNode{
			ID: itoa(r.ID), Label: r.Name, Kind: graph.KindRole, GroupID: deref(r.GroupID),
		})
		if r.GroupID != nil {
			out.Edges = append(out.Edges, direct(r.ID, *r.GroupID, graph.RoleOf))
		}
	}

	holds := make([]ActorRole, 0, len(m.actorRoles))
	for ar := range m.actorRoles {
		a, okA := m.actors[ar.ActorID]
		r, okR := m.roles[ar.RoleID]
		if !okA || !okR {
			continue
		}
		if !inScope(a.GroupID) || !inScope(r.GroupID) {
			continue
		}
		holds = append(holds, ar)
	}
	slices.SortFunc(holds, func(x, y ActorRole) int {
		if c := cmp.Compare(x.ActorID, y.ActorID); c != 0 {
			return c
		}
		return cmp.Compare(x.RoleID, y.RoleID)
	})
	for _, ar := range holds {
		out.Edges = append(out.Edges, direct(ar.ActorID, ar.RoleID, graph.Holds))
	}

	return out, nil
}

func direct(source, target int64, rel graph.Relation) storage.RawEdge {
	return storage.RawEdge{Source: itoa(source), Target: itoa(target), Weight: rel.DefaultWeight(), Relation: rel}
}

func sortedValues[V any](m map[int64]V) []V {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func deref(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
