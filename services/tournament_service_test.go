package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Dosada05/tournament-tracker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScorePolicy(t *testing.T) {
	cases := map[string]ScorePolicy{"": HighScoreWins, "high": HighScoreWins, " LOW ": LowScoreWins}
	for in, want := range cases {
		got, err := ParseScorePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseScorePolicy("closest")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "low", LowScoreWins.String())
}

func TestThreeTeamTournamentPlaysToCompletion(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	tour := env.create(t, "Spring Cup", 1, 2, 3)
	require.Len(t, tour.Rounds, 2)
	bye, semi, final := tour.Rounds[0][0], tour.Rounds[0][1], tour.Rounds[1][0]

	// The bye resolves at creation and its winner waits in the final.
	require.True(t, bye.IsBye())
	assert.Equal(t, "Falcons", bye.Winner.Name)
	assert.Equal(t, "Falcons", final.Entries[0].TeamCompeting.Name)
	assert.Nil(t, final.Entries[1].TeamCompeting)
	assert.Equal(t, 1, tour.CurrentRound())

	sent := env.notifier.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, []string{"ada@example.com"}, sent[0].to)
	assert.Equal(t, "You have a bye this round", sent[0].subject)
	assert.Contains(t, sent[0].body, "Spring Cup")
	assert.Contains(t, sent[0].body, "League Office")
	assert.Equal(t, []string{"alan@example.com"}, sent[1].to)
	assert.Equal(t, "You have a new matchup with Owls", sent[1].subject)
	assert.Equal(t, []string{"linus@example.com"}, sent[2].to)
	assert.Equal(t, "You have a new matchup with Hawks", sent[2].subject)

	res, err := env.svc.RecordScores(ctx, tour, semi.ID, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, []*models.Matchup{semi}, res.Resolved)
	assert.Equal(t, []*models.Matchup{final}, res.Propagated)
	assert.True(t, res.Advanced)
	assert.False(t, res.Completed)
	assert.Equal(t, 2, res.CurrentRound)

	sent = env.notifier.messages()
	require.Len(t, sent, 5)
	assert.Equal(t, "You have a new matchup with Hawks", sent[3].subject)
	assert.Equal(t, "You have a new matchup with Falcons", sent[4].subject)

	stored, err := env.svc.GetTournament(ctx, tour.ID)
	require.NoError(t, err)
	storedFinal := stored.Rounds[1][0]
	assert.Equal(t, "Hawks", stored.Rounds[0][1].Winner.Name)
	assert.Equal(t, 7.0, stored.Rounds[0][1].Entries[0].Score)
	assert.Equal(t, "Hawks", storedFinal.Entries[1].TeamCompeting.Name)

	res, err = env.svc.RecordScores(ctx, stored, storedFinal.ID, 2, 5)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 0, res.CurrentRound)
	require.Len(t, res.Payouts, 2)
	assert.Equal(t, "Hawks", res.Payouts[0].Team.Name)
	assert.Equal(t, 15.0, res.Payouts[0].Amount)
	assert.Equal(t, "Falcons", res.Payouts[1].Team.Name)
	assert.Equal(t, 5.0, res.Payouts[1].Amount)

	sent = env.notifier.messages()
	require.Len(t, sent, 6)
	done := sent[5]
	assert.Empty(t, done.to)
	assert.Equal(t, []string{"ada@example.com", "alan@example.com", "linus@example.com"}, done.bcc)
	assert.Equal(t, "In Spring Cup, Hawks has won!", done.subject)
	assert.Contains(t, done.body, "Hawks will receive $15.00")
	assert.Contains(t, done.body, "Falcons will receive $5.00")

	require.Equal(t, []string{"Spring Cup"}, env.archiver.names)
	summary, ok := env.archiver.docs[0].(tournamentSummary)
	require.True(t, ok)
	assert.Equal(t, "Hawks", summary.Champion)
	assert.Len(t, summary.Rounds, 2)
	assert.Equal(t, []summaryPayout{
		{Place: 1, PlaceName: "Champion", Team: "Hawks", Amount: 15},
		{Place: 2, PlaceName: "Runner Up", Team: "Falcons", Amount: 5},
	}, summary.Payouts)
	doc, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "@example.com")

	active, err := env.svc.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	_, err = env.svc.GetTournament(ctx, tour.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTieIsRejectedAndScoresRestored(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	tour := env.create(t, "Tie Break", 1, 2)
	m := tour.Rounds[0][0]

	_, err := env.svc.RecordScores(ctx, tour, m.ID, 4, 4)
	require.ErrorIs(t, err, ErrTie)
	var tie *TieError
	require.True(t, errors.As(err, &tie))
	assert.Equal(t, m.ID, tie.MatchupID)
	assert.Equal(t, 4.0, tie.Score)

	assert.Nil(t, m.Winner)
	assert.Equal(t, 0.0, m.Entries[0].Score)
	assert.Equal(t, 0.0, m.Entries[1].Score)

	stored, err := env.svc.GetTournament(ctx, tour.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Rounds[0][0].Winner)
	assert.Equal(t, 0.0, stored.Rounds[0][0].Entries[0].Score)
	assert.Empty(t, env.archiver.names)
}

func TestZeroScoreLeavesMatchupOpen(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	tour := env.create(t, "Open Match", 1, 2)
	m := tour.Rounds[0][0]

	res, err := env.svc.RecordScores(ctx, tour, m.ID, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Resolved)
	assert.False(t, res.Completed)

	stored, err := env.svc.GetTournament(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored.Rounds[0][0].Entries[0].Score)
	assert.Nil(t, stored.Rounds[0][0].Winner)

	res, err = env.svc.RecordScores(ctx, stored, m.ID, 5, 2)
	require.NoError(t, err)
	assert.True(t, res.Completed)
}

func TestLowScorePolicy(t *testing.T) {
	env := newTestEnv(t, LowScoreWins)
	ctx := context.Background()

	tour := env.create(t, "Golf Day", 1, 2)
	res, err := env.svc.RecordScores(ctx, tour, tour.Rounds[0][0].ID, 3, 5)
	require.NoError(t, err)
	require.True(t, res.Completed)
	assert.Equal(t, "Falcons", tour.Rounds[0][0].Winner.Name)
	assert.Equal(t, "Falcons", res.Payouts[0].Team.Name)
	assert.Equal(t, "Hawks", res.Payouts[1].Team.Name)
}

func TestFourTeamBracketHasNoByes(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	tour := env.create(t, "Full House", 1, 2, 3, 4)
	require.Len(t, tour.Rounds, 2)
	for _, m := range tour.Rounds[0] {
		assert.False(t, m.IsBye())
		assert.Nil(t, m.Winner)
	}

	// Linus plays for both Owls and Ravens and hears about each matchup.
	assert.Len(t, env.notifier.messages(), 4)

	_, err := env.svc.RecordScores(ctx, tour, tour.Rounds[0][0].ID, 1, 2)
	require.NoError(t, err)
	res, err := env.svc.RecordScores(ctx, tour, tour.Rounds[0][1].ID, 9, 4)
	require.NoError(t, err)
	require.True(t, res.Advanced)

	final := tour.Rounds[1][0]
	assert.Equal(t, "Hawks", final.Entries[0].TeamCompeting.Name)
	assert.Equal(t, "Owls", final.Entries[1].TeamCompeting.Name)

	res, err = env.svc.RecordScores(ctx, tour, final.ID, 3, 1)
	require.NoError(t, err)
	require.True(t, res.Completed)
	assert.Equal(t, 20.0, res.Payouts[0].Amount)
}

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateTournamentInput
		want  error
	}{
		{"blank name", CreateTournamentInput{Name: "  ", TeamIDs: []int{1, 2}}, ErrTournamentNameRequired},
		{"multi-line name", CreateTournamentInput{Name: "Cup\nBcc: all@example.com", TeamIDs: []int{1, 2}}, ErrValidationFailed},
		{"negative fee", CreateTournamentInput{Name: "Cup", EntryFee: -1, TeamIDs: []int{1, 2}}, ErrEntryFeeNegative},
		{"one team", CreateTournamentInput{Name: "Cup", TeamIDs: []int{1}}, ErrNotEnoughEntrants},
		{"unknown team", CreateTournamentInput{Name: "Cup", TeamIDs: []int{1, 99}}, ErrTeamNotFound},
		{"duplicate team", CreateTournamentInput{Name: "Cup", TeamIDs: []int{1, 1}}, ErrValidationFailed},
		{"unknown prize", CreateTournamentInput{Name: "Cup", TeamIDs: []int{1, 2}, PrizeIDs: []int{7}}, ErrPrizeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateTournament(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	active, err := env.svc.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, env.notifier.messages())
}

func TestRecordScoresValidation(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	tour := env.create(t, "Spring Cup", 1, 2, 3)
	bye, semi, final := tour.Rounds[0][0], tour.Rounds[0][1], tour.Rounds[1][0]

	_, err := env.svc.RecordScores(ctx, tour, 999, 1, 2)
	assert.ErrorIs(t, err, ErrMatchupNotFound)

	_, err = env.svc.RecordScores(ctx, tour, bye.ID, 1)
	assert.ErrorIs(t, err, ErrMatchupAlreadyResolved)

	_, err = env.svc.RecordScores(ctx, tour, final.ID, 1, 2)
	assert.ErrorIs(t, err, ErrMatchupNotReady)

	_, err = env.svc.RecordScores(ctx, tour, semi.ID, 1)
	assert.ErrorIs(t, err, ErrScoreCountMismatch)
}

func TestSideEffectFailuresDoNotFailCompletion(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	env.notifier.err = errors.New("smtp down")
	env.archiver.err = errors.New("bucket gone")
	ctx := context.Background()

	tour := env.create(t, "Storm Cup", 1, 2)
	res, err := env.svc.RecordScores(ctx, tour, tour.Rounds[0][0].ID, 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Len(t, env.archiver.names, 1)

	active, err := env.svc.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCompletionWithoutArchiver(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	gen := env.svc.(*tournamentService).generator
	svc := NewTournamentService(env.store, gen, env.notifier, nil, HighScoreWins, "", testLogger())
	ctx := context.Background()

	tour, err := svc.CreateTournament(ctx, CreateTournamentInput{Name: "Quiet Cup", TeamIDs: []int{1, 2}})
	require.NoError(t, err)
	res, err := svc.RecordScores(ctx, tour, tour.Rounds[0][0].ID, 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 0.0, res.Payouts[0].Amount)
	assert.Empty(t, env.archiver.names)
}

func TestFiveTeamBracketPropagatesEachWinnerOnce(t *testing.T) {
	env := newTestEnv(t, HighScoreWins)
	ctx := context.Background()

	eagles, err := env.roster.CreateTeam(ctx, "Eagles", []int{1})
	require.NoError(t, err)
	tour := env.create(t, "Five Cup", 1, 2, 3, 4, eagles.ID)
	require.Len(t, tour.Rounds, 3)
	require.Len(t, tour.Rounds[0], 4)
	require.Len(t, tour.Rounds[1], 2)
	require.Len(t, tour.Rounds[2], 1)
	for _, m := range tour.Rounds[0][:3] {
		assert.True(t, m.IsBye())
	}
	assertWinnersPropagated(t, tour)

	res, err := env.svc.RecordScores(ctx, tour, tour.Rounds[0][3].ID, 3, 1)
	require.NoError(t, err)
	require.True(t, res.Advanced)
	assert.Equal(t, 2, res.CurrentRound)
	assertWinnersPropagated(t, tour)
	assert.Equal(t, "Ravens", tour.Rounds[1][1].Entries[1].TeamCompeting.Name)

	for _, m := range tour.Rounds[1] {
		_, err = env.svc.RecordScores(ctx, tour, m.ID, 3, 1)
		require.NoError(t, err)
		assertWinnersPropagated(t, tour)
	}
	final := tour.Rounds[2][0]
	assert.Equal(t, "Falcons", final.Entries[0].TeamCompeting.Name)
	assert.Equal(t, "Owls", final.Entries[1].TeamCompeting.Name)

	res, err = env.svc.RecordScores(ctx, tour, final.ID, 1, 3)
	require.NoError(t, err)
	require.True(t, res.Completed)
	assert.Equal(t, "Owls", res.Payouts[0].Team.Name)
	assert.Equal(t, "Falcons", res.Payouts[1].Team.Name)
}

// assertWinnersPropagated checks that every decided matchup before the final
// feeds exactly one entry of the following round, holding its winner.
func assertWinnersPropagated(t *testing.T, tour *models.Tournament) {
	t.Helper()
	for ri, round := range tour.Rounds[:len(tour.Rounds)-1] {
		for _, m := range round {
			if m.Winner == nil {
				continue
			}
			var fed []*models.MatchupEntry
			for rj, later := range tour.Rounds[ri+1:] {
				for _, next := range later {
					for _, e := range next.Entries {
						if e.ParentMatchup != nil && e.ParentMatchup.ID == m.ID {
							require.Zero(t, rj, "matchup %d feeds a later round", m.ID)
							fed = append(fed, e)
						}
					}
				}
			}
			require.Len(t, fed, 1, "matchup %d", m.ID)
			require.NotNil(t, fed[0].TeamCompeting, "matchup %d", m.ID)
			assert.Equal(t, m.Winner.ID, fed[0].TeamCompeting.ID, "matchup %d", m.ID)
		}
	}
}
