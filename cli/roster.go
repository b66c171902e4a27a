package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-tracker/services"
	"github.com/spf13/cobra"
)

func newPersonCommand(app *App, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "person", Short: "Manage people"}

	var in services.CreatePersonInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Roster.CreatePerson(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.json(p)
			}
			fmt.Fprintf(out.w, "created person %d\n", p.ID)
			return nil
		},
	}
	add.Flags().StringVar(&in.FirstName, "first", "", "first name")
	add.Flags().StringVar(&in.LastName, "last", "", "last name")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	_ = add.MarkFlagRequired("first")
	_ = add.MarkFlagRequired("last")

	list := &cobra.Command{
		Use:   "list",
		Short: "List people",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			people, err := app.Roster.ListPeople(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(people))
			for _, p := range people {
				rows = append(rows, []string{strconv.Itoa(p.ID), p.FullName(), p.Email, p.Phone})
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.table(people, []string{"ID", "NAME", "EMAIL", "PHONE"}, rows)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newTeamCommand(app *App, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "team", Short: "Manage teams"}

	var (
		name    string
		members []int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a team of existing people",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.Roster.CreateTeam(cmd.Context(), name, members)
			if err != nil {
				return err
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.json(t)
			}
			fmt.Fprintf(out.w, "created team %d\n", t.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "team name")
	add.Flags().IntSliceVar(&members, "member", nil, "member person ID (repeatable)")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teams, err := app.Roster.ListTeams(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(teams))
			for _, t := range teams {
				names := make([]string, 0, len(t.Members))
				for _, m := range t.Members {
					names = append(names, m.FullName())
				}
				rows = append(rows, []string{strconv.Itoa(t.ID), t.Name, strings.Join(names, ", ")})
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.table(teams, []string{"ID", "NAME", "MEMBERS"}, rows)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newPrizeCommand(app *App, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "prize", Short: "Manage prizes"}

	var in services.CreatePrizeInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a prize for a finishing place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Roster.CreatePrize(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.json(p)
			}
			fmt.Fprintf(out.w, "created prize %d\n", p.ID)
			return nil
		},
	}
	add.Flags().IntVar(&in.PlaceNumber, "place", 1, "finishing place")
	add.Flags().StringVar(&in.PlaceName, "name", "", "place name")
	add.Flags().Float64Var(&in.FixedAmount, "amount", 0, "fixed payout amount")
	add.Flags().Float64Var(&in.Percentage, "percent", 0, "payout as a percentage of entry fees")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List prizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prizes, err := app.Roster.ListPrizes(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(prizes))
			for _, p := range prizes {
				rows = append(rows, []string{
					strconv.Itoa(p.ID), strconv.Itoa(p.PlaceNumber), p.PlaceName,
					strconv.FormatFloat(p.FixedAmount, 'f', -1, 64),
					strconv.FormatFloat(p.Percentage, 'f', -1, 64),
				})
			}
			out := &outputFormatter{format: opts.Format, w: cmd.OutOrStdout()}
			return out.table(prizes, []string{"ID", "PLACE", "NAME", "AMOUNT", "PERCENT"}, rows)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
