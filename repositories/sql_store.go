package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Dosada05/tournament-tracker/models"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore implements Store on a relational database. A completed tournament
// is flagged inactive instead of being deleted.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewSQLStore(db *sql.DB, dialect Dialect, logger *slog.Logger) (*SQLStore, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dialect)
	}
	return &SQLStore{db: db, dialect: dialect, logger: logger}, nil
}

func (s *SQLStore) exec(ctx context.Context, ex SQLExecutor, query string, args ...interface{}) (sql.Result, error) {
	return ex.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, ex SQLExecutor, query string, args ...interface{}) (*sql.Rows, error) {
	return ex.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, ex SQLExecutor, query string, args ...interface{}) *sql.Row {
	return ex.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// inTx runs fn inside a transaction, committing when fn succeeds and rolling
// back otherwise.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

func (s *SQLStore) insertID(ctx context.Context, ex SQLExecutor, query string, args ...interface{}) (int, error) {
	var id int
	if err := s.queryRow(ctx, ex, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, mapConstraintError(err)
	}
	return id, nil
}

func (s *SQLStore) CreatePerson(ctx context.Context, p *models.Person) (int, error) {
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO people (first_name, last_name, email, phone) VALUES (?, ?, ?, ?)`,
		p.FirstName, p.LastName, p.Email, p.Phone)
	if err != nil {
		return 0, fmt.Errorf("failed to create person: %w", err)
	}
	p.ID = id
	return id, nil
}

func (s *SQLStore) CreatePrize(ctx context.Context, p *models.Prize) (int, error) {
	id, err := s.insertID(ctx, s.db,
		`INSERT INTO prizes (place_number, place_name, fixed_amount, percentage) VALUES (?, ?, ?, ?)`,
		p.PlaceNumber, p.PlaceName, p.FixedAmount, p.Percentage)
	if err != nil {
		return 0, fmt.Errorf("failed to create prize: %w", err)
	}
	p.ID = id
	return id, nil
}

func (s *SQLStore) CreateTeam(ctx context.Context, t *models.Team) (int, error) {
	var id int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.insertID(ctx, tx, `INSERT INTO teams (name) VALUES (?)`, t.Name)
		if err != nil {
			return err
		}
		for i, m := range t.Members {
			if err := s.requireRow(ctx, tx, "people", m.ID, teamsTable.name, "memberIds"); err != nil {
				return err
			}
			if _, err := s.exec(ctx, tx,
				`INSERT INTO team_members (team_id, person_id, position) VALUES (?, ?, ?)`,
				id, m.ID, i); err != nil {
				return mapConstraintError(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create team: %w", err)
	}
	t.ID = id
	return id, nil
}

// CreateTournament inserts the tournament and its whole bracket in one
// transaction. Rounds are inserted in order so every parent matchup has an ID
// before an entry of a later round references it.
func (s *SQLStore) CreateTournament(ctx context.Context, t *models.Tournament) (int, error) {
	var id int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.insertID(ctx, tx, `INSERT INTO tournaments (name, entry_fee) VALUES (?, ?)`, t.Name, t.EntryFee)
		if err != nil {
			return err
		}
		for i, team := range t.Teams {
			if err := s.requireRow(ctx, tx, "teams", team.ID, tournamentsTable.name, "teamIds"); err != nil {
				return err
			}
			if _, err := s.exec(ctx, tx,
				`INSERT INTO tournament_teams (tournament_id, team_id, position) VALUES (?, ?, ?)`,
				id, team.ID, i); err != nil {
				return mapConstraintError(err)
			}
		}
		for i, prize := range t.Prizes {
			if err := s.requireRow(ctx, tx, "prizes", prize.ID, tournamentsTable.name, "prizeIds"); err != nil {
				return err
			}
			if _, err := s.exec(ctx, tx,
				`INSERT INTO tournament_prizes (tournament_id, prize_id, position) VALUES (?, ?, ?)`,
				id, prize.ID, i); err != nil {
				return mapConstraintError(err)
			}
		}
		for _, round := range t.Rounds {
			for pos, m := range round {
				if len(m.Entries) < 1 || len(m.Entries) > 2 {
					return &ValidationError{Table: matchupsTable.name, Field: "entryIds", Value: fmt.Sprint(len(m.Entries)), Err: errEntryCount(len(m.Entries))}
				}
				if m.ID, err = s.insertID(ctx, tx,
					`INSERT INTO matchups (tournament_id, round_number, position, winner_team_id) VALUES (?, ?, ?, ?)`,
					id, m.Round, pos, nullableTeamID(m.Winner)); err != nil {
					return err
				}
				for epos, e := range m.Entries {
					if e.ID, err = s.insertID(ctx, tx,
						`INSERT INTO matchup_entries (matchup_id, position, team_id, score, parent_matchup_id) VALUES (?, ?, ?, ?, ?)`,
						m.ID, epos, nullableTeamID(e.TeamCompeting), e.Score, nullableID(e.ParentMatchupID())); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create tournament: %w", err)
	}
	t.ID = id
	return id, nil
}

func (s *SQLStore) requireRow(ctx context.Context, ex SQLExecutor, refTable string, id int, table, field string) error {
	var found int
	err := s.queryRow(ctx, ex, `SELECT id FROM `+refTable+` WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return &ReferentialIntegrityError{Table: table, Field: field, RefTable: refTable, ID: id}
	}
	return err
}

func (s *SQLStore) UpdateMatchup(ctx context.Context, m *models.Matchup) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `UPDATE matchups SET winner_team_id = ? WHERE id = ?`, nullableTeamID(m.Winner), m.ID)
		if err != nil {
			return fmt.Errorf("failed to update matchup %d: %w", m.ID, mapConstraintError(err))
		}
		if err := checkAffectedRows(res, fmt.Errorf("%w: id %d", ErrMatchupNotFound, m.ID)); err != nil {
			return err
		}
		for _, e := range m.Entries {
			res, err := s.exec(ctx, tx,
				`UPDATE matchup_entries SET team_id = ?, score = ?, parent_matchup_id = ? WHERE id = ? AND matchup_id = ?`,
				nullableTeamID(e.TeamCompeting), e.Score, nullableID(e.ParentMatchupID()), e.ID, m.ID)
			if err != nil {
				return fmt.Errorf("failed to update matchup entry %d: %w", e.ID, mapConstraintError(err))
			}
			if err := checkAffectedRows(res, fmt.Errorf("%w: id %d (matchup %d)", ErrMatchupEntryNotFound, e.ID, m.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) CompleteTournament(ctx context.Context, t *models.Tournament) error {
	res, err := s.exec(ctx, s.db, `UPDATE tournaments SET active = FALSE WHERE id = ? AND active = TRUE`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to complete tournament %d: %w", t.ID, err)
	}
	return checkAffectedRows(res, fmt.Errorf("%w: id %d", ErrTournamentNotFound, t.ID))
}

func (s *SQLStore) GetAllPeople(ctx context.Context) ([]*models.Person, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, first_name, last_name, email, phone FROM people ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	people := make([]*models.Person, 0)
	for rows.Next() {
		p := &models.Person{}
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *SQLStore) GetAllPrizes(ctx context.Context) ([]*models.Prize, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, place_number, place_name, fixed_amount, percentage FROM prizes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	defer rows.Close()

	prizes := make([]*models.Prize, 0)
	for rows.Next() {
		p := &models.Prize{}
		if err := rows.Scan(&p.ID, &p.PlaceNumber, &p.PlaceName, &p.FixedAmount, &p.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}
		prizes = append(prizes, p)
	}
	return prizes, rows.Err()
}

type idLink struct {
	ownerID, refID int
}

// links reads (owner, ref) pairs ordered by owner then position.
func (s *SQLStore) links(ctx context.Context, query string) ([]idLink, error) {
	rows, err := s.query(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []idLink
	for rows.Next() {
		var l idLink
		if err := rows.Scan(&l.ownerID, &l.refID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetAllTeams(ctx context.Context) ([]*models.Team, error) {
	var (
		people  []*models.Person
		teams   []*models.Team
		members []idLink
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		people, err = s.GetAllPeople(gCtx)
		return err
	})
	g.Go(func() error {
		rows, err := s.query(gCtx, s.db, `SELECT id, name FROM teams ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t := &models.Team{}
			if err := rows.Scan(&t.ID, &t.Name); err != nil {
				return fmt.Errorf("failed to scan team: %w", err)
			}
			teams = append(teams, t)
		}
		return rows.Err()
	})
	g.Go(func() error {
		var err error
		members, err = s.links(gCtx, `SELECT team_id, person_id FROM team_members ORDER BY team_id, position`)
		if err != nil {
			return fmt.Errorf("failed to list team members: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	peopleByID := indexBy(people, func(p *models.Person) int { return p.ID })
	teamsByID := indexBy(teams, func(t *models.Team) int { return t.ID })
	for _, l := range members {
		team, ok := teamsByID[l.ownerID]
		if !ok {
			continue
		}
		p, ok := peopleByID[l.refID]
		if !ok {
			return nil, &ReferentialIntegrityError{Table: teamsTable.name, Field: "memberIds", RefTable: peopleTable.name, ID: l.refID}
		}
		team.Members = append(team.Members, p)
	}
	for _, t := range teams {
		if t.Members == nil {
			t.Members = []*models.Person{}
		}
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, nil
}

type matchupRow struct {
	id, tournamentID, round int
	winnerID                sql.NullInt64
}

type entryRow struct {
	id, matchupID int
	teamID        sql.NullInt64
	score         float64
	parentID      sql.NullInt64
}

// GetAllTournaments loads every active tournament with its bracket. The
// tables are read concurrently and joined in memory by ID.
func (s *SQLStore) GetAllTournaments(ctx context.Context) ([]*models.Tournament, error) {
	var (
		teams       []*models.Team
		prizes      []*models.Prize
		tournaments []*models.Tournament
		teamLinks   []idLink
		prizeLinks  []idLink
		matchups    []matchupRow
		entries     []entryRow
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = s.GetAllTeams(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		prizes, err = s.GetAllPrizes(gCtx)
		return err
	})
	g.Go(func() error {
		rows, err := s.query(gCtx, s.db, `SELECT id, name, entry_fee FROM tournaments WHERE active = TRUE ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to list tournaments: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t := &models.Tournament{}
			if err := rows.Scan(&t.ID, &t.Name, &t.EntryFee); err != nil {
				return fmt.Errorf("failed to scan tournament: %w", err)
			}
			tournaments = append(tournaments, t)
		}
		return rows.Err()
	})
	g.Go(func() error {
		var err error
		teamLinks, err = s.links(gCtx, `SELECT tournament_id, team_id FROM tournament_teams ORDER BY tournament_id, position`)
		if err != nil {
			return fmt.Errorf("failed to list tournament teams: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prizeLinks, err = s.links(gCtx, `SELECT tournament_id, prize_id FROM tournament_prizes ORDER BY tournament_id, position`)
		if err != nil {
			return fmt.Errorf("failed to list tournament prizes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.query(gCtx, s.db, `
			SELECT m.id, m.tournament_id, m.round_number, m.winner_team_id
			FROM matchups m
			JOIN tournaments t ON t.id = m.tournament_id
			WHERE t.active = TRUE
			ORDER BY m.tournament_id, m.round_number, m.position`)
		if err != nil {
			return fmt.Errorf("failed to list matchups: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r matchupRow
			if err := rows.Scan(&r.id, &r.tournamentID, &r.round, &r.winnerID); err != nil {
				return fmt.Errorf("failed to scan matchup: %w", err)
			}
			matchups = append(matchups, r)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.query(gCtx, s.db, `
			SELECT e.id, e.matchup_id, e.team_id, e.score, e.parent_matchup_id
			FROM matchup_entries e
			JOIN matchups m ON m.id = e.matchup_id
			JOIN tournaments t ON t.id = m.tournament_id
			WHERE t.active = TRUE
			ORDER BY e.matchup_id, e.position`)
		if err != nil {
			return fmt.Errorf("failed to list matchup entries: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r entryRow
			if err := rows.Scan(&r.id, &r.matchupID, &r.teamID, &r.score, &r.parentID); err != nil {
				return fmt.Errorf("failed to scan matchup entry: %w", err)
			}
			entries = append(entries, r)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	teamsByID := indexBy(teams, func(t *models.Team) int { return t.ID })
	prizesByID := indexBy(prizes, func(p *models.Prize) int { return p.ID })
	tournamentsByID := indexBy(tournaments, func(t *models.Tournament) int { return t.ID })

	lookupTeam := func(field string, id sql.NullInt64) (*models.Team, error) {
		if !id.Valid {
			return nil, nil
		}
		t, ok := teamsByID[int(id.Int64)]
		if !ok {
			return nil, &ReferentialIntegrityError{Table: matchupsTable.name, Field: field, RefTable: teamsTable.name, ID: int(id.Int64)}
		}
		return t, nil
	}

	for _, l := range teamLinks {
		if t, ok := tournamentsByID[l.ownerID]; ok {
			team, ok := teamsByID[l.refID]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "teamIds", RefTable: teamsTable.name, ID: l.refID}
			}
			t.Teams = append(t.Teams, team)
		}
	}
	for _, l := range prizeLinks {
		if t, ok := tournamentsByID[l.ownerID]; ok {
			prize, ok := prizesByID[l.refID]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "prizeIds", RefTable: prizesTable.name, ID: l.refID}
			}
			t.Prizes = append(t.Prizes, prize)
		}
	}

	matchupsByID := make(map[int]*models.Matchup, len(matchups))
	for _, r := range matchups {
		winner, err := lookupTeam("winnerTeamId", r.winnerID)
		if err != nil {
			return nil, err
		}
		m := &models.Matchup{ID: r.id, Round: r.round, Winner: winner}
		matchupsByID[r.id] = m

		t := tournamentsByID[r.tournamentID]
		for len(t.Rounds) < r.round {
			t.Rounds = append(t.Rounds, nil)
		}
		t.Rounds[r.round-1] = append(t.Rounds[r.round-1], m)
	}
	for _, r := range entries {
		m := matchupsByID[r.matchupID]
		team, err := lookupTeam("teamId", r.teamID)
		if err != nil {
			return nil, err
		}
		e := &models.MatchupEntry{ID: r.id, TeamCompeting: team, Score: r.score}
		if r.parentID.Valid {
			parent, ok := matchupsByID[int(r.parentID.Int64)]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: entriesTable.name, Field: "parentMatchupId", RefTable: matchupsTable.name, ID: int(r.parentID.Int64)}
			}
			e.ParentMatchup = parent
		}
		m.Entries = append(m.Entries, e)
	}

	for _, t := range tournaments {
		for i, round := range t.Rounds {
			if len(round) == 0 {
				return nil, &ValidationError{Table: tournamentsTable.name, Field: "rounds", Value: strconv.Itoa(i + 1), Err: errEmptyGroup}
			}
		}
	}

	if tournaments == nil {
		tournaments = []*models.Tournament{}
	}
	return tournaments, nil
}

func nullableID(id int) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func nullableTeamID(t *models.Team) interface{} {
	if t == nil {
		return nil
	}
	return t.ID
}

// mapConstraintError turns driver foreign key violations into
// ErrReferentialIntegrity.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return fmt.Errorf("%w: %s", ErrReferentialIntegrity, pqErr.Constraint)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return fmt.Errorf("%w: %s", ErrReferentialIntegrity, liteErr.Error())
	}
	return err
}
