package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/Dosada05/tournament-tracker/brackets"
	"github.com/Dosada05/tournament-tracker/models"
	"github.com/Dosada05/tournament-tracker/repositories"
	"github.com/Dosada05/tournament-tracker/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := repositories.NewTextFileStore(t.TempDir())
	require.NoError(t, err)
	gen := brackets.NewSingleEliminationGenerator(func([]*models.Team) {}, logger)
	return &App{
		Roster:      services.NewRosterService(store, logger),
		Tournaments: services.NewTournamentService(store, gen, services.NewLogNotifier(logger), nil, services.HighScoreWins, "", logger),
	}
}

// execute runs one command line against a fresh command tree.
func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(app)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := execute(t, app, args...)
	require.NoError(t, err, "%v", args)
	return out
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCommand(newTestApp(t))
	assert.Equal(t, "tracker", root.Name())
	assert.True(t, root.SilenceUsage)

	for _, path := range [][]string{
		{"person", "add"}, {"person", "list"},
		{"team", "add"}, {"team", "list"},
		{"prize", "add"}, {"prize", "list"},
		{"tournament", "create"}, {"tournament", "list"}, {"tournament", "show"},
		{"score"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	f := root.PersistentFlags().Lookup("format")
	require.NotNil(t, f)
	assert.Equal(t, "text", f.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, newTestApp(t), "--format", "yaml", "person", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestTournamentWorkflow(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "created person 1\n", mustExecute(t, app, "person", "add", "--first", "Ada", "--last", "Lovelace", "--email", "ada@example.com"))
	mustExecute(t, app, "person", "add", "--first", "Alan", "--last", "Turing")
	assert.Equal(t, "created team 1\n", mustExecute(t, app, "team", "add", "--name", "Falcons", "--member", "1"))
	mustExecute(t, app, "team", "add", "--name", "Hawks", "--member", "2")
	mustExecute(t, app, "team", "add", "--name", "Owls", "--member", "1,2")
	assert.Equal(t, "created prize 1\n", mustExecute(t, app, "prize", "add", "--place", "1", "--name", "Champion", "--percent", "50"))

	out := mustExecute(t, app, "tournament", "create", "--name", "Spring Cup", "--fee", "10",
		"--team", "1", "--team", "2", "--team", "3", "--prize", "1")
	assert.Equal(t, "#1 Spring Cup (entry fee 10, 3 teams)\n"+
		"Round 1\n"+
		"  [1] Falcons (bye)\n"+
		"  [2] Hawks vs Owls\n"+
		"Round 2\n"+
		"  [3] Falcons vs TBD\n", out)

	out = mustExecute(t, app, "tournament", "list")
	assert.Contains(t, out, "Spring Cup")

	out = mustExecute(t, app, "score", "1", "2", "7", "3")
	assert.Equal(t, "matchup 2 won by Hawks\nadvanced to round 2\n", out)

	out = mustExecute(t, app, "tournament", "show", "1")
	assert.Contains(t, out, "  [2] Hawks 7 vs Owls 3 -> Hawks\n")
	assert.Contains(t, out, "  [3] Falcons vs Hawks\n")

	out = mustExecute(t, app, "score", "1", "3", "2", "5")
	assert.Equal(t, "matchup 3 won by Hawks\n"+
		"tournament complete\n"+
		"  place 1: Hawks 15.00\n"+
		"  place 2: Falcons 0.00\n", out)

	out = mustExecute(t, app, "tournament", "list")
	assert.NotContains(t, out, "Spring Cup")

	_, err := execute(t, app, "tournament", "show", "1")
	assert.ErrorIs(t, err, services.ErrTournamentNotFound)
}

func TestJSONOutput(t *testing.T) {
	app := newTestApp(t)
	mustExecute(t, app, "person", "add", "--first", "Ada", "--last", "Lovelace")
	mustExecute(t, app, "person", "add", "--first", "Alan", "--last", "Turing", "--phone", "555-0100")

	out := mustExecute(t, app, "--format", "json", "person", "list")
	var people []models.Person
	require.NoError(t, json.Unmarshal([]byte(out), &people))
	require.Len(t, people, 2)
	assert.Equal(t, "Alan", people[1].FirstName)
	assert.Equal(t, "555-0100", people[1].Phone)
}

func TestCommandErrors(t *testing.T) {
	app := newTestApp(t)

	_, err := execute(t, app, "tournament", "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid tournament id "abc"`)

	_, err = execute(t, app, "score", "1", "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid score "x"`)

	_, err = execute(t, app, "team", "add", "--name", "Ghosts", "--member", "9")
	assert.ErrorIs(t, err, services.ErrPersonNotFound)

	_, err = execute(t, app, "tournament", "create")
	require.Error(t, err)
}
