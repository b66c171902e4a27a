package repositories

import (
	"context"
	"testing"

	"github.com/Dosada05/tournament-tracker/models"
	"github.com/stretchr/testify/require"
)

type roster struct {
	people []*models.Person
	prizes []*models.Prize
	teams  []*models.Team
}

// seedRoster creates two people, two prizes and three teams:
// Falcons (Ada), Hawks (Alan) and Owls (Ada, Alan).
func seedRoster(t *testing.T, s Store) roster {
	t.Helper()
	ctx := context.Background()

	var r roster
	for _, p := range []*models.Person{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-0100"},
		{FirstName: "Alan", LastName: "Turing"},
	} {
		_, err := s.CreatePerson(ctx, p)
		require.NoError(t, err)
		r.people = append(r.people, p)
	}
	for _, p := range []*models.Prize{
		{PlaceNumber: 1, PlaceName: "Champion", Percentage: 50},
		{PlaceNumber: 2, PlaceName: "Runner Up", FixedAmount: 12.5},
	} {
		_, err := s.CreatePrize(ctx, p)
		require.NoError(t, err)
		r.prizes = append(r.prizes, p)
	}
	ada, alan := r.people[0], r.people[1]
	for _, tm := range []*models.Team{
		{Name: "Falcons", Members: []*models.Person{ada}},
		{Name: "Hawks", Members: []*models.Person{alan}},
		{Name: "Owls", Members: []*models.Person{ada, alan}},
	} {
		_, err := s.CreateTeam(ctx, tm)
		require.NoError(t, err)
		r.teams = append(r.teams, tm)
	}
	return r
}

// springCup is a three-team bracket: Falcons have a bye, Hawks meet Owls,
// and the final waits on both.
func springCup(r roster) *models.Tournament {
	falcons, hawks, owls := r.teams[0], r.teams[1], r.teams[2]
	bye := &models.Matchup{Round: 1, Entries: []*models.MatchupEntry{{TeamCompeting: falcons}}}
	semi := &models.Matchup{Round: 1, Entries: []*models.MatchupEntry{{TeamCompeting: hawks}, {TeamCompeting: owls}}}
	final := &models.Matchup{Round: 2, Entries: []*models.MatchupEntry{{ParentMatchup: bye}, {ParentMatchup: semi}}}
	return &models.Tournament{
		Name:     "Spring Cup",
		EntryFee: 10,
		Teams:    r.teams,
		Prizes:   r.prizes,
		Rounds:   [][]*models.Matchup{{bye, semi}, {final}},
	}
}

// playFirstRound resolves the bye and the semifinal (Hawks 7.5, Owls 3) and
// moves both winners into the final.
func playFirstRound(t *testing.T, s Store, tour *models.Tournament) {
	t.Helper()
	ctx := context.Background()
	bye, semi, final := tour.Rounds[0][0], tour.Rounds[0][1], tour.Rounds[1][0]

	bye.Winner = bye.Entries[0].TeamCompeting
	semi.Entries[0].Score = 7.5
	semi.Entries[1].Score = 3
	semi.Winner = semi.Entries[0].TeamCompeting
	final.Entries[0].TeamCompeting = bye.Winner
	final.Entries[1].TeamCompeting = semi.Winner

	for _, m := range []*models.Matchup{bye, semi, final} {
		require.NoError(t, s.UpdateMatchup(ctx, m))
	}
}
