package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-tracker/brackets"
	"github.com/Dosada05/tournament-tracker/models"
	"github.com/Dosada05/tournament-tracker/repositories"
	"github.com/Dosada05/tournament-tracker/storage"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	to, bcc       []string
	subject, body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, bcc []string, subject, htmlBody string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{to: to, bcc: bcc, subject: subject, body: htmlBody})
	return n.err
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type fakeArchiver struct {
	names []string
	docs  []any
	err   error
}

func (a *fakeArchiver) Archive(_ context.Context, name string, doc any) (*storage.UploadResult, error) {
	a.names = append(a.names, name)
	a.docs = append(a.docs, doc)
	if a.err != nil {
		return nil, a.err
	}
	return &storage.UploadResult{Key: "tournaments/" + name + ".json"}, nil
}

type testEnv struct {
	store    repositories.Store
	roster   RosterService
	svc      TournamentService
	notifier *recordingNotifier
	archiver *fakeArchiver
	people   []*models.Person
	teams    []*models.Team
	prizes   []*models.Prize
}

// newTestEnv builds services over a text file store seeded with four teams:
// Falcons (Ada), Hawks (Alan), Owls (Grace without email, Linus) and
// Ravens (Linus). Prizes pay 50% to first place and 5 to second.
func newTestEnv(t *testing.T, policy ScorePolicy) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := repositories.NewTextFileStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		store:    store,
		roster:   NewRosterService(store, testLogger()),
		notifier: &recordingNotifier{},
		archiver: &fakeArchiver{},
	}
	gen := brackets.NewSingleEliminationGenerator(func([]*models.Team) {}, testLogger())
	env.svc = NewTournamentService(store, gen, env.notifier, env.archiver, policy, "League Office", testLogger())

	for _, in := range []CreatePersonInput{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
		{FirstName: "Grace", LastName: "Hopper"},
		{FirstName: "Linus", LastName: "Torvalds", Email: "linus@example.com"},
	} {
		p, err := env.roster.CreatePerson(ctx, in)
		require.NoError(t, err)
		env.people = append(env.people, p)
	}
	for _, tc := range []struct {
		name    string
		members []int
	}{
		{"Falcons", []int{1}},
		{"Hawks", []int{2}},
		{"Owls", []int{3, 4}},
		{"Ravens", []int{4}},
	} {
		team, err := env.roster.CreateTeam(ctx, tc.name, tc.members)
		require.NoError(t, err)
		env.teams = append(env.teams, team)
	}
	for _, in := range []CreatePrizeInput{
		{PlaceNumber: 1, PlaceName: "Champion", Percentage: 50},
		{PlaceNumber: 2, PlaceName: "Runner Up", FixedAmount: 5},
	} {
		p, err := env.roster.CreatePrize(ctx, in)
		require.NoError(t, err)
		env.prizes = append(env.prizes, p)
	}
	return env
}

func (e *testEnv) create(t *testing.T, name string, teamIDs ...int) *models.Tournament {
	t.Helper()
	tour, err := e.svc.CreateTournament(context.Background(), CreateTournamentInput{
		Name:     name,
		EntryFee: 10,
		TeamIDs:  teamIDs,
		PrizeIDs: []int{1, 2},
	})
	require.NoError(t, err)
	return tour
}
