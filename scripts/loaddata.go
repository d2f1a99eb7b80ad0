// Use: after 'kgview migrate --datastore-engine <engine> --datastore-uri <uri>':
// go run ./scripts/loaddata.go <engine> <uri> <groups> <actors per group>

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

const (
	batchSize     = 500
	rolesPerGroup = 4
	rolesPerActor = 2
)

type row []any

func main() {
	if len(os.Args) != 5 {
		log.Fatal("usage: loaddata <engine> <uri> <groups> <actors per group>")
	}

	argEngine := os.Args[1]
	argConnectionString := os.Args[2]
	argGroups, err := strconv.Atoi(os.Args[3])
	if err != nil {
		log.Panic(err)
	}
	argActorsPerGroup, err := strconv.Atoi(os.Args[4])
	if err != nil {
		log.Panic(err)
	}

	var driver string
	var placeholder sq.PlaceholderFormat = sq.Question
	switch argEngine {
	case "postgres":
		driver = "pgx"
		placeholder = sq.Dollar
	case "mysql":
		driver = "mysql"
	case "sqlite":
		driver = "sqlite"
	default:
		log.Panic("unknown database")
	}

	db, err := sql.Open(driver, argConnectionString)
	if err != nil {
		log.Panic(err)
	}
	defer db.Close()

	groups, actors, roles, actorRoles := generate(argGroups, argActorsPerGroup)

	stbl := sq.StatementBuilder.PlaceholderFormat(placeholder).RunWith(db)
	ctx := context.Background()

	if err := insert(ctx, stbl, "kg_groups", []string{"id", "name"}, groups); err != nil {
		log.Panic(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	g.Go(func() error {
		return insert(ctx, stbl, "kg_actors", []string{"id", "name", "group_id"}, actors)
	})
	g.Go(func() error {
		return insert(ctx, stbl, "kg_roles", []string{"id", "name", "group_id"}, roles)
	})
	if err := g.Wait(); err != nil {
		log.Panic(err)
	}

	if err := insert(context.Background(), stbl, "kg_actor_roles", []string{"actor_id", "role_id"}, actorRoles); err != nil {
		log.Panic(err)
	}
}

// generate builds totalGroups groups, each with actorsPerGroup actors and
// rolesPerGroup roles. Every actor holds rolesPerActor roles of its group.
func generate(totalGroups, actorsPerGroup int) (groups, actors, roles, actorRoles []row) {
	defer timeTrack(time.Now(), "generate")

	var actorID, roleID int64
	for g := 1; g <= totalGroups; g++ {
		groupID := int64(g)
		groups = append(groups, row{groupID, fmt.Sprintf("group %d", g)})

		firstRole := roleID + 1
		for r := 0; r < rolesPerGroup; r++ {
			roleID++
			roles = append(roles, row{roleID, fmt.Sprintf("role %d", roleID), groupID})
		}

		for a := 0; a < actorsPerGroup; a++ {
			actorID++
			actors = append(actors, row{actorID, fmt.Sprintf("actor %d", actorID), groupID})

			for _, offset := range rand.Perm(rolesPerGroup)[:rolesPerActor] {
				actorRoles = append(actorRoles, row{actorID, firstRole + int64(offset)})
			}
		}
	}

	return groups, actors, roles, actorRoles
}

func insert(ctx context.Context, stbl sq.StatementBuilderType, table string, columns []string, rows []row) error {
	defer timeTrack(time.Now(), fmt.Sprintf("insert %s", table))

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		stmt := stbl.Insert(table).Columns(columns...)
		for _, r := range rows[start:end] {
			stmt = stmt.Values(r...)
		}

		res, err := stmt.ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	log.Printf("wrote %d rows to table %s", total, table)
	return nil
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	log.Printf("%s took %s", name, elapsed)
}
