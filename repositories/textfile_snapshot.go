package repositories

import (
	"context"
	"strconv"

	"github.com/Dosada05/tournament-tracker/models"
)

type tableSet uint8

const (
	withPeople tableSet = 1 << iota
	withPrizes
	withTeams
	withEntries
	withMatchups
	withTournaments

	withAll = withPeople | withPrizes | withTeams | withEntries | withMatchups | withTournaments
)

// snapshot is the decoded state of the requested tables for one operation.
// Lookups go through the ID maps built once at load time.
type snapshot struct {
	people      []*models.Person
	peopleByID  map[int]*models.Person
	prizes      []*models.Prize
	prizesByID  map[int]*models.Prize
	teams       []teamRecord
	teamsByID   map[int]teamRecord
	entries     []entryRecord
	matchups    []matchupRecord
	tournaments []tournamentRecord
}

func (s *TextFileStore) load(ctx context.Context, set tableSet) (*snapshot, error) {
	order := []struct {
		flag tableSet
		tbl  table
	}{
		{withPeople, peopleTable},
		{withPrizes, prizesTable},
		{withTeams, teamsTable},
		{withEntries, entriesTable},
		{withMatchups, matchupsTable},
		{withTournaments, tournamentsTable},
	}

	var tbls []table
	for _, o := range order {
		if set&o.flag != 0 {
			tbls = append(tbls, o.tbl)
		}
	}
	raw, err := s.readTables(ctx, tbls...)
	if err != nil {
		return nil, err
	}
	lines := make(map[string][]string, len(tbls))
	for i, tbl := range tbls {
		lines[tbl.name] = raw[i]
	}

	snap := &snapshot{}
	if set&withPeople != 0 {
		if snap.people, err = decodeLines(lines[peopleTable.name], decodePerson); err != nil {
			return nil, err
		}
		snap.peopleByID = indexBy(snap.people, func(p *models.Person) int { return p.ID })
	}
	if set&withPrizes != 0 {
		if snap.prizes, err = decodeLines(lines[prizesTable.name], decodePrize); err != nil {
			return nil, err
		}
		snap.prizesByID = indexBy(snap.prizes, func(p *models.Prize) int { return p.ID })
	}
	if set&withTeams != 0 {
		if snap.teams, err = decodeLines(lines[teamsTable.name], decodeTeam); err != nil {
			return nil, err
		}
		snap.teamsByID = indexBy(snap.teams, func(r teamRecord) int { return r.ID })
	}
	if set&withEntries != 0 {
		if snap.entries, err = decodeLines(lines[entriesTable.name], decodeEntry); err != nil {
			return nil, err
		}
	}
	if set&withMatchups != 0 {
		if snap.matchups, err = decodeLines(lines[matchupsTable.name], decodeMatchup); err != nil {
			return nil, err
		}
	}
	if set&withTournaments != 0 {
		if snap.tournaments, err = decodeLines(lines[tournamentsTable.name], decodeTournament); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// checkTeam accepts 0 as an absent reference.
func (snap *snapshot) checkTeam(tbl table, field string, id int) error {
	if id == 0 {
		return nil
	}
	if _, ok := snap.teamsByID[id]; !ok {
		return &ReferentialIntegrityError{Table: tbl.name, Field: field, RefTable: teamsTable.name, ID: id}
	}
	return nil
}

func (snap *snapshot) resolveTeams() ([]*models.Team, error) {
	teams := make([]*models.Team, 0, len(snap.teams))
	for _, r := range snap.teams {
		t := &models.Team{ID: r.ID, Name: r.Name, Members: make([]*models.Person, 0, len(r.MemberIDs))}
		for _, id := range r.MemberIDs {
			p, ok := snap.peopleByID[id]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: teamsTable.name, Field: "memberIds", RefTable: peopleTable.name, ID: id}
			}
			t.Members = append(t.Members, p)
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// resolveTournaments rebuilds every tournament graph. Teams, matchups and
// entries are materialised once and shared, so a team that appears in several
// matchups of one load is the same pointer everywhere.
func (snap *snapshot) resolveTournaments() ([]*models.Tournament, error) {
	teams, err := snap.resolveTeams()
	if err != nil {
		return nil, err
	}
	teamsByID := indexBy(teams, func(t *models.Team) int { return t.ID })

	matchupsByID := make(map[int]*models.Matchup, len(snap.matchups))
	for _, r := range snap.matchups {
		matchupsByID[r.ID] = &models.Matchup{ID: r.ID, Round: r.Round}
	}

	entriesByID := make(map[int]*models.MatchupEntry, len(snap.entries))
	for _, r := range snap.entries {
		e := &models.MatchupEntry{ID: r.ID, Score: r.Score}
		if r.TeamID != 0 {
			t, ok := teamsByID[r.TeamID]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: entriesTable.name, Field: "teamId", RefTable: teamsTable.name, ID: r.TeamID}
			}
			e.TeamCompeting = t
		}
		if r.ParentID != 0 {
			m, ok := matchupsByID[r.ParentID]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: entriesTable.name, Field: "parentMatchupId", RefTable: matchupsTable.name, ID: r.ParentID}
			}
			e.ParentMatchup = m
		}
		entriesByID[r.ID] = e
	}

	for _, r := range snap.matchups {
		m := matchupsByID[r.ID]
		m.Entries = make([]*models.MatchupEntry, 0, len(r.EntryIDs))
		for _, id := range r.EntryIDs {
			e, ok := entriesByID[id]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: matchupsTable.name, Field: "entryIds", RefTable: entriesTable.name, ID: id}
			}
			m.Entries = append(m.Entries, e)
		}
		if r.WinnerID != 0 {
			t, ok := teamsByID[r.WinnerID]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: matchupsTable.name, Field: "winnerTeamId", RefTable: teamsTable.name, ID: r.WinnerID}
			}
			m.Winner = t
		}
	}

	out := make([]*models.Tournament, 0, len(snap.tournaments))
	for _, r := range snap.tournaments {
		t := &models.Tournament{ID: r.ID, Name: r.Name, EntryFee: r.EntryFee}
		for _, id := range r.TeamIDs {
			team, ok := teamsByID[id]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "teamIds", RefTable: teamsTable.name, ID: id}
			}
			t.Teams = append(t.Teams, team)
		}
		for _, id := range r.PrizeIDs {
			prize, ok := snap.prizesByID[id]
			if !ok {
				return nil, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "prizeIds", RefTable: prizesTable.name, ID: id}
			}
			t.Prizes = append(t.Prizes, prize)
		}
		for gi, ids := range r.Rounds {
			round := make([]*models.Matchup, 0, len(ids))
			for _, id := range ids {
				m, ok := matchupsByID[id]
				if !ok {
					return nil, &ReferentialIntegrityError{Table: tournamentsTable.name, Field: "rounds", RefTable: matchupsTable.name, ID: id}
				}
				if m.Round != gi+1 {
					return nil, &ValidationError{Table: tournamentsTable.name, Field: "rounds", Value: strconv.Itoa(id), Err: errRoundMismatch(m.Round, gi+1)}
				}
				round = append(round, m)
			}
			t.Rounds = append(t.Rounds, round)
		}
		out = append(out, t)
	}
	return out, nil
}

func indexBy[T any](recs []T, id func(T) int) map[int]T {
	idx := make(map[int]T, len(recs))
	for _, r := range recs {
		idx[id(r)] = r
	}
	return idx
}
