package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the closed set of entity kinds a node can have.
type Kind uint8

const (
	KindUnspecified Kind = iota
	KindActor
	KindGroup
	KindRole
)

// String returns the canonical lowercase name used in node ids and on the wire.
func (k Kind) String() string {
	switch k {
	case KindActor:
		return "actor"
	case KindGroup:
		return "group"
	case KindRole:
		return "role"
	case KindUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a raw kind discriminator onto a Kind. Besides the canonical
// names it understands the spellings used by the legacy membership store
// (membro, faccao/facção, funcao/função), compared case-insensitively.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "actor", "member", "membro":
		return KindActor, nil
	case "group", "faccao", "facção", "faction":
		return KindGroup, nil
	case "role", "funcao", "função", "function":
		return KindRole, nil
	default:
		return KindUnspecified, fmt.Errorf("unknown node kind %q", raw)
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindActor, KindGroup, KindRole:
		return json.Marshal(k.String())
	case KindUnspecified:
		return nil, fmt.Errorf("cannot marshal unspecified node kind")
	default:
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Relation is the closed set of edge relations.
type Relation uint8

const (
	RelationUnspecified Relation = iota
	// BelongsTo links an actor to its group.
	BelongsTo
	// Holds links an actor to a role it holds.
	Holds
	// RoleOf links a role to the group it is scoped to.
	RoleOf
	// CoGroup links two actors sharing a group.
	CoGroup
	// CoRole links two actors sharing a role.
	CoRole
)

// Edge weights per relation. Inferred relations carry a weaker signal than
// direct ones, and sharing a role is a stronger signal than sharing a group.
const (
	DirectWeight  = 1.0
	CoRoleWeight  = 0.6
	CoGroupWeight = 0.3
)

func (r Relation) String() string {
	switch r {
	case BelongsTo:
		return "belongs_to"
	case Holds:
		return "holds"
	case RoleOf:
		return "role_of"
	case CoGroup:
		return "co_group"
	case CoRole:
		return "co_role"
	case RelationUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("relation(%d)", uint8(r))
	}
}

// ParseRelation maps a raw relation name onto a Relation. The uppercase names
// of the legacy store (PERTENCE_A, EXERCE, FUNCAO_DA_FACCAO, CO_FACCAO,
// CO_FUNCAO) are accepted as aliases.
func ParseRelation(raw string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "belongs_to", "belongsto", "pertence_a":
		return BelongsTo, nil
	case "holds", "exerce":
		return Holds, nil
	case "role_of", "roleof", "funcao_da_faccao":
		return RoleOf, nil
	case "co_group", "cogroup", "co_faccao":
		return CoGroup, nil
	case "co_role", "corole", "co_funcao":
		return CoRole, nil
	default:
		return RelationUnspecified, fmt.Errorf("unknown edge relation %q", raw)
	}
}

// IsInferred reports whether the relation is derived from co-membership rather
// than backed by an explicit relationship row.
func (r Relation) IsInferred() bool {
	switch r {
	case CoGroup, CoRole:
		return true
	case BelongsTo, Holds, RoleOf, RelationUnspecified:
		return false
	default:
		return false
	}
}

// Endpoints returns the kinds of the source and target of a relation.
// Inferred relations always join two actors.
func (r Relation) Endpoints() (source Kind, target Kind) {
	switch r {
	case BelongsTo:
		return KindActor, KindGroup
	case Holds:
		return KindActor, KindRole
	case RoleOf:
		return KindRole, KindGroup
	case CoGroup, CoRole:
		return KindActor, KindActor
	case RelationUnspecified:
		return KindUnspecified, KindUnspecified
	default:
		return KindUnspecified, KindUnspecified
	}
}

// DefaultWeight is the weight given to an edge of this relation when the
// source does not provide a positive one.
func (r Relation) DefaultWeight() float64 {
	switch r {
	case CoGroup:
		return CoGroupWeight
	case CoRole:
		return CoRoleWeight
	case BelongsTo, Holds, RoleOf:
		return DirectWeight
	case RelationUnspecified:
		return 0
	default:
		return 0
	}
}

func (r Relation) MarshalJSON() ([]byte, error) {
	if r == RelationUnspecified || r > CoRole {
		return nil, fmt.Errorf("cannot marshal %s", r)
	}
	return json.Marshal(r.String())
}

func (r *Relation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRelation(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
