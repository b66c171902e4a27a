package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Dosada05/tournament-tracker/models"
	"golang.org/x/sync/errgroup"
)

// TextFileStore keeps every entity kind in its own flat table under dir.
// Each operation reloads the tables it needs, mutates them in memory and
// rewrites them whole. Writes are plain rewrites, so a crash mid-write leaves
// a table that fails to decode on the next load.
//
// mu serialises operations inside one process. Separate processes sharing
// dir can still assign duplicate IDs.
type TextFileStore struct {
	dir string
	mu  sync.Mutex
}

func NewTextFileStore(dir string) (*TextFileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("text file store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("text file store: create data directory %s: %w", dir, err)
	}
	return &TextFileStore{dir: dir}, nil
}

func (s *TextFileStore) path(tbl table) string {
	return filepath.Join(s.dir, tbl.file)
}

func (s *TextFileStore) readLines(tbl table) ([]string, error) {
	data, err := os.ReadFile(s.path(tbl))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s table: %w", tbl.name, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return lines, nil
}

func (s *TextFileStore) writeLines(tbl table, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.path(tbl), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s table: %w", tbl.name, err)
	}
	return nil
}

// readTables reads the raw lines of several tables concurrently.
func (s *TextFileStore) readTables(ctx context.Context, tbls ...table) ([][]string, error) {
	raw := make([][]string, len(tbls))
	g, gCtx := errgroup.WithContext(ctx)
	for i, tbl := range tbls {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			lines, err := s.readLines(tbl)
			if err != nil {
				return err
			}
			raw[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *TextFileStore) CreatePerson(ctx context.Context, p *models.Person) (int, error) {
	if err := checkPersonText(p); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withPeople)
	if err != nil {
		return 0, err
	}
	p.ID = nextID(snap.people, func(x *models.Person) int { return x.ID })
	people := append(snap.people, p)
	if err := s.writeLines(peopleTable, encodeLines(people, encodePerson)); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *TextFileStore) CreatePrize(ctx context.Context, p *models.Prize) (int, error) {
	if err := checkText(prizesTable, "placeName", p.PlaceName); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withPrizes)
	if err != nil {
		return 0, err
	}
	p.ID = nextID(snap.prizes, func(x *models.Prize) int { return x.ID })
	prizes := append(snap.prizes, p)
	if err := s.writeLines(prizesTable, encodeLines(prizes, encodePrize)); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *TextFileStore) CreateTeam(ctx context.Context, t *models.Team) (int, error) {
	if err := checkText(teamsTable, "name", t.Name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withPeople|withTeams)
	if err != nil {
		return 0, err
	}
	rec := teamRecord{Name: t.Name}
	for _, m := range t.Members {
		if _, ok := snap.peopleByID[m.ID]; !ok {
			return 0, &ReferentialIntegrityError{Table: teamsTable.name, Field: "memberIds", RefTable: peopleTable.name, ID: m.ID}
		}
		rec.MemberIDs = append(rec.MemberIDs, m.ID)
	}
	rec.ID = nextID(snap.teams, func(x teamRecord) int { return x.ID })
	teams := append(snap.teams, rec)
	if err := s.writeLines(teamsTable, encodeLines(teams, encodeTeam)); err != nil {
		return 0, err
	}
	t.ID = rec.ID
	return t.ID, nil
}

// CreateTournament stores the tournament together with every matchup and
// entry of its bracket. Leaf tables are written first so a failure never
// leaves a tournament record pointing at matchups that were not saved.
func (s *TextFileStore) CreateTournament(ctx context.Context, t *models.Tournament) (int, error) {
	if err := checkText(tournamentsTable, "name", t.Name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withTeams|withPrizes|withEntries|withMatchups|withTournaments)
	if err != nil {
		return 0, err
	}

	rec := tournamentRecord{Name: t.Name, EntryFee: t.EntryFee}
	for _, team := range t.Teams {
		if _, ok := snap.teamsByID[team.ID]; !ok {
			return 0, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "teamIds", RefTable: teamsTable.name, ID: team.ID}
		}
		rec.TeamIDs = append(rec.TeamIDs, team.ID)
	}
	for _, prize := range t.Prizes {
		if _, ok := snap.prizesByID[prize.ID]; !ok {
			return 0, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "prizeIds", RefTable: prizesTable.name, ID: prize.ID}
		}
		rec.PrizeIDs = append(rec.PrizeIDs, prize.ID)
	}

	nextMatchup := nextID(snap.matchups, func(x matchupRecord) int { return x.ID })
	nextEntry := nextID(snap.entries, func(x entryRecord) int { return x.ID })
	entries, matchups := snap.entries, snap.matchups
	for _, round := range t.Rounds {
		ids := make([]int, 0, len(round))
		for _, m := range round {
			if len(m.Entries) < 1 || len(m.Entries) > 2 {
				return 0, &ValidationError{Table: matchupsTable.name, Field: "entryIds", Value: fmt.Sprint(len(m.Entries)), Err: errEntryCount(len(m.Entries))}
			}
			m.ID = nextMatchup
			nextMatchup++
			for _, e := range m.Entries {
				e.ID = nextEntry
				nextEntry++
				entries = append(entries, entryFromModel(e))
			}
			matchups = append(matchups, matchupFromModel(m))
			ids = append(ids, m.ID)
		}
		rec.Rounds = append(rec.Rounds, ids)
	}
	rec.ID = nextID(snap.tournaments, func(x tournamentRecord) int { return x.ID })

	if err := s.writeLines(entriesTable, encodeLines(entries, encodeEntry)); err != nil {
		return 0, err
	}
	if err := s.writeLines(matchupsTable, encodeLines(matchups, encodeMatchup)); err != nil {
		return 0, err
	}
	tournaments := append(snap.tournaments, rec)
	if err := s.writeLines(tournamentsTable, encodeLines(tournaments, encodeTournament)); err != nil {
		return 0, err
	}
	t.ID = rec.ID
	return t.ID, nil
}

func (s *TextFileStore) GetAllPeople(ctx context.Context) ([]*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withPeople)
	if err != nil {
		return nil, err
	}
	return snap.people, nil
}

func (s *TextFileStore) GetAllPrizes(ctx context.Context) ([]*models.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withPrizes)
	if err != nil {
		return nil, err
	}
	return snap.prizes, nil
}

func (s *TextFileStore) GetAllTeams(ctx context.Context) ([]*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withPeople|withTeams)
	if err != nil {
		return nil, err
	}
	return snap.resolveTeams()
}

func (s *TextFileStore) GetAllTournaments(ctx context.Context) ([]*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withAll)
	if err != nil {
		return nil, err
	}
	return snap.resolveTournaments()
}

// UpdateMatchup replaces the matchup record and the records of each of its
// entries in place, then rewrites both tables. Team and parent references
// are checked before anything is written.
func (s *TextFileStore) UpdateMatchup(ctx context.Context, m *models.Matchup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withTeams|withEntries|withMatchups)
	if err != nil {
		return err
	}

	mi := indexOf(snap.matchups, func(r matchupRecord) bool { return r.ID == m.ID })
	if mi < 0 {
		return fmt.Errorf("%w: id %d", ErrMatchupNotFound, m.ID)
	}
	rec := matchupFromModel(m)
	if err := snap.checkTeam(matchupsTable, "winnerTeamId", rec.WinnerID); err != nil {
		return err
	}
	for _, e := range m.Entries {
		ei := indexOf(snap.entries, func(r entryRecord) bool { return r.ID == e.ID })
		if ei < 0 {
			return fmt.Errorf("%w: id %d (matchup %d)", ErrMatchupEntryNotFound, e.ID, m.ID)
		}
		er := entryFromModel(e)
		if err := snap.checkTeam(entriesTable, "teamId", er.TeamID); err != nil {
			return err
		}
		if er.ParentID != 0 && indexOf(snap.matchups, func(r matchupRecord) bool { return r.ID == er.ParentID }) < 0 {
			return &ReferentialIntegrityError{Table: entriesTable.name, Field: "parentMatchupId", RefTable: matchupsTable.name, ID: er.ParentID}
		}
		snap.entries[ei] = er
	}
	snap.matchups[mi] = rec

	if err := s.writeLines(entriesTable, encodeLines(snap.entries, encodeEntry)); err != nil {
		return err
	}
	return s.writeLines(matchupsTable, encodeLines(snap.matchups, encodeMatchup))
}

// CompleteTournament removes the tournament record. Its matchups and entries
// are left in place.
func (s *TextFileStore) CompleteTournament(ctx context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, withTournaments)
	if err != nil {
		return err
	}
	ti := indexOf(snap.tournaments, func(r tournamentRecord) bool { return r.ID == t.ID })
	if ti < 0 {
		return fmt.Errorf("%w: id %d", ErrTournamentNotFound, t.ID)
	}
	remaining := append(snap.tournaments[:ti:ti], snap.tournaments[ti+1:]...)
	return s.writeLines(tournamentsTable, encodeLines(remaining, encodeTournament))
}

func checkPersonText(p *models.Person) error {
	fields := []struct{ name, value string }{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
		{"phone", p.Phone},
	}
	for _, f := range fields {
		if err := checkText(peopleTable, f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func entryFromModel(e *models.MatchupEntry) entryRecord {
	r := entryRecord{ID: e.ID, Score: e.Score, ParentID: e.ParentMatchupID()}
	if e.TeamCompeting != nil {
		r.TeamID = e.TeamCompeting.ID
	}
	return r
}

func matchupFromModel(m *models.Matchup) matchupRecord {
	r := matchupRecord{ID: m.ID, Round: m.Round}
	for _, e := range m.Entries {
		r.EntryIDs = append(r.EntryIDs, e.ID)
	}
	if m.Winner != nil {
		r.WinnerID = m.Winner.ID
	}
	return r
}

// nextID returns max(existing)+1, or 1 for an empty table.
func nextID[T any](recs []T, id func(T) int) int {
	max := 0
	for _, r := range recs {
		if v := id(r); v > max {
			max = v
		}
	}
	return max + 1
}

func indexOf[T any](recs []T, match func(T) bool) int {
	for i, r := range recs {
		if match(r) {
			return i
		}
	}
	return -1
}
