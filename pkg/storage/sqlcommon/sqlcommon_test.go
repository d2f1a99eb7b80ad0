package sqlcommon

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/storage"
)

func TestDirectGraphQuery(t *testing.T) {
	t.Run("unfiltered", func(t *testing.T) {
		query, args, err := DirectGraphQuery(storage.AllGroups(), sq.Dollar)
		require.NoError(t, err)
		require.Empty(t, args)
		require.Equal(t, 5, strings.Count(query, " UNION ALL "))
		require.NotContains(t, query, "?")
		require.NotContains(t, query, "$1")
		require.True(t, strings.HasPrefix(query, "SELECT 'node' AS row_type, 'group' AS kind, g.id AS source_id"))
		require.Contains(t, query, "g.name AS label, NULL AS group_id", "group nodes carry no group")
	})

	t.Run("filtered_dollar", func(t *testing.T) {
		query, args, err := DirectGraphQuery(storage.ForGroup(42), sq.Dollar)
		require.NoError(t, err)
		require.Len(t, args, 7)
		for _, arg := range args {
			require.Equal(t, int64(42), arg)
		}
		require.NotContains(t, query, "?")
		require.Contains(t, query, "$7")
		require.NotContains(t, query, "$8")
		require.Contains(t, query, "a.group_id IS NOT NULL")
	})

	t.Run("filtered_question", func(t *testing.T) {
		query, args, err := DirectGraphQuery(storage.ForGroup(1), sq.Question)
		require.NoError(t, err)
		require.Len(t, args, 7)
		require.Equal(t, 7, strings.Count(query, "?"))
	})
}

func TestRowAppendTo(t *testing.T) {
	out := &storage.RawGraph{}

	require.NoError(t, directGraphRow{
		rowType:  rowTypeNode,
		kind:     "actor",
		sourceID: 3,
		label:    sql.NullString{String: "{ze}", Valid: true},
		groupID:  sql.NullInt64{Int64: 9, Valid: true},
		size:     sql.NullFloat64{Float64: 12, Valid: true},
	}.appendTo(out))
	require.NoError(t, directGraphRow{
		rowType:  rowTypeNode,
		kind:     "role",
		sourceID: 4,
	}.appendTo(out))
	require.NoError(t, directGraphRow{
		rowType:  rowTypeEdge,
		kind:     "holds",
		sourceID: 3,
		targetID: sql.NullInt64{Int64: 4, Valid: true},
	}.appendTo(out))
	require.NoError(t, directGraphRow{rowType: rowTypeEdge, kind: "belongs_to", sourceID: 3}.appendTo(out),
		"an edge without target is skipped")

	size := 12.0
	require.Equal(t, []storage.RawNode{
		{ID: "3", Label: "{ze}", Kind: graph.KindActor, GroupID: 9, Size: &size},
		{ID: "4", Kind: graph.KindRole},
	}, out.Nodes)
	require.Equal(t, []storage.RawEdge{
		{Source: "3", Target: "4", Weight: graph.DirectWeight, Relation: graph.Holds},
	}, out.Edges)

	require.Error(t, directGraphRow{rowType: "other"}.appendTo(out))
	require.Error(t, directGraphRow{rowType: rowTypeNode, kind: "vehicle"}.appendTo(out))
	require.Error(t, directGraphRow{rowType: rowTypeEdge, kind: "knows"}.appendTo(out))
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg.Logger)
	require.Equal(t, defaultPingTimeout, cfg.PingTimeout)

	cfg = NewConfig(
		WithUsername("u"),
		WithPassword("p"),
		WithMaxOpenConns(5),
		WithMaxIdleConns(2),
		WithConnMaxIdleTime(time.Second),
		WithConnMaxLifetime(time.Minute),
		WithQueryTimeout(3*time.Second),
		WithPingTimeout(time.Millisecond),
		WithMetrics(),
	)
	require.Equal(t, "u", cfg.Username)
	require.Equal(t, "p", cfg.Password)
	require.Equal(t, 5, cfg.MaxOpenConns)
	require.Equal(t, 2, cfg.MaxIdleConns)
	require.Equal(t, time.Second, cfg.ConnMaxIdleTime)
	require.Equal(t, time.Minute, cfg.ConnMaxLifetime)
	require.Equal(t, 3*time.Second, cfg.QueryTimeout)
	require.Equal(t, time.Millisecond, cfg.PingTimeout)
	require.True(t, cfg.ExportMetrics)
}
