package cli

import (
	"fmt"
	"slices"

	"github.com/Dosada05/tournament-tracker/services"
	"github.com/spf13/cobra"
)

// App carries the services the commands operate on.
type App struct {
	Roster      services.RosterService
	Tournaments services.TournamentService
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(app *App) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Single-elimination tournament tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newPersonCommand(app, opts))
	cmd.AddCommand(newTeamCommand(app, opts))
	cmd.AddCommand(newPrizeCommand(app, opts))
	cmd.AddCommand(newTournamentCommand(app, opts))
	cmd.AddCommand(newScoreCommand(app, opts))

	return cmd
}
