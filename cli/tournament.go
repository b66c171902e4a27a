package cli

import (
	"fmt"
	"strconv"

	"github.com/Dosada05/tournament-tracker/services"
	"github.com/spf13/cobra"
)

func newTournamentCommand(app *App, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "tournament", Short: "Create and inspect tournaments"}

	var in services.CreateTournamentInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tournament and build its bracket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.Tournaments.CreateTournament(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.tournament(t)
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "tournament name")
	create.Flags().Float64Var(&in.EntryFee, "fee", 0, "entry fee per team")
	create.Flags().IntSliceVar(&in.TeamIDs, "team", nil, "entered team ID (repeatable)")
	create.Flags().IntSliceVar(&in.PrizeIDs, "prize", nil, "prize ID (repeatable)")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List active tournaments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := app.Tournaments.ListTournaments(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(ts))
			for _, t := range ts {
				rows = append(rows, []string{
					strconv.Itoa(t.ID), t.Name, strconv.Itoa(len(t.Teams)), strconv.Itoa(t.CurrentRound()),
				})
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.table(ts, []string{"ID", "NAME", "TEAMS", "ROUND"}, rows)
		},
	}

	show := &cobra.Command{
		Use:   "show <tournament-id>",
		Short: "Show the bracket of a tournament",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("tournament", args[0])
			if err != nil {
				return err
			}
			t, err := app.Tournaments.GetTournament(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.tournament(t)
		},
	}

	cmd.AddCommand(create, list, show)
	return cmd
}

func newScoreCommand(app *App, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <tournament-id> <matchup-id> <score>...",
		Short: "Record the scores of a matchup, in entry order",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tournamentID, err := parseID("tournament", args[0])
			if err != nil {
				return err
			}
			matchupID, err := parseID("matchup", args[1])
			if err != nil {
				return err
			}
			scores := make([]float64, 0, len(args)-2)
			for _, a := range args[2:] {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid score %q: %w", a, err)
				}
				scores = append(scores, v)
			}

			t, err := app.Tournaments.GetTournament(cmd.Context(), tournamentID)
			if err != nil {
				return err
			}
			res, err := app.Tournaments.RecordScores(cmd.Context(), t, matchupID, scores...)
			if err != nil {
				return err
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.roundResult(res)
		},
	}
}

func parseID(kind, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}
