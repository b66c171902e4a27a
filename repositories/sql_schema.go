package repositories

import (
	"context"
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour spoken by SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

func (d Dialect) identity() string {
	if d == DialectPostgres {
		return "SERIAL PRIMARY KEY"
	}
	// AUTOINCREMENT keeps SQLite from reusing the IDs of deleted rows.
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// rebind rewrites ? placeholders into $N for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	id := d.identity()
	return []string{
		`CREATE TABLE IF NOT EXISTS people (
			id ` + id + `,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS prizes (
			id ` + id + `,
			place_number INTEGER NOT NULL,
			place_name TEXT NOT NULL,
			fixed_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			percentage DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id ` + id + `,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id INTEGER NOT NULL REFERENCES teams(id),
			person_id INTEGER NOT NULL REFERENCES people(id),
			position INTEGER NOT NULL,
			PRIMARY KEY (team_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS tournaments (
			id ` + id + `,
			name TEXT NOT NULL,
			entry_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_teams (
			tournament_id INTEGER NOT NULL REFERENCES tournaments(id),
			team_id INTEGER NOT NULL REFERENCES teams(id),
			position INTEGER NOT NULL,
			PRIMARY KEY (tournament_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_prizes (
			tournament_id INTEGER NOT NULL REFERENCES tournaments(id),
			prize_id INTEGER NOT NULL REFERENCES prizes(id),
			position INTEGER NOT NULL,
			PRIMARY KEY (tournament_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS matchups (
			id ` + id + `,
			tournament_id INTEGER NOT NULL REFERENCES tournaments(id),
			round_number INTEGER NOT NULL CHECK (round_number >= 1),
			position INTEGER NOT NULL,
			winner_team_id INTEGER REFERENCES teams(id)
		)`,
		`CREATE TABLE IF NOT EXISTS matchup_entries (
			id ` + id + `,
			matchup_id INTEGER NOT NULL REFERENCES matchups(id),
			position INTEGER NOT NULL,
			team_id INTEGER REFERENCES teams(id),
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			parent_matchup_id INTEGER REFERENCES matchups(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matchups_tournament ON matchups (tournament_id, round_number, position)`,
		`CREATE INDEX IF NOT EXISTS idx_matchup_entries_matchup ON matchup_entries (matchup_id, position)`,
	}
}

// Migrate creates the tables when they do not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if s.dialect == DialectSQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
