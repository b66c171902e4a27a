package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Dosada05/tournament-tracker/models"
	"github.com/Dosada05/tournament-tracker/services"
)

type outputFormatter struct {
	format string
	w      io.Writer
}

func (f *outputFormatter) json(v any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows with aligned columns; v is used instead in json mode.
func (f *outputFormatter) table(v any, header []string, rows [][]string) error {
	if f.format == "json" {
		return f.json(v)
	}
	tw := tabwriter.NewWriter(f.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func teamName(t *models.Team) string {
	if t == nil {
		return "TBD"
	}
	return t.Name
}

func (f *outputFormatter) tournament(t *models.Tournament) error {
	if f.format == "json" {
		return f.json(t)
	}
	fmt.Fprintf(f.w, "#%d %s (entry fee %g, %d teams)\n", t.ID, t.Name, t.EntryFee, len(t.Teams))
	for i, round := range t.Rounds {
		fmt.Fprintf(f.w, "Round %d\n", i+1)
		for _, m := range round {
			fmt.Fprintf(f.w, "  [%d] %s\n", m.ID, matchupLine(m))
		}
	}
	return nil
}

func matchupLine(m *models.Matchup) string {
	if m.IsBye() {
		return teamName(m.Entries[0].TeamCompeting) + " (bye)"
	}
	parts := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		if e.Score != 0 {
			parts = append(parts, fmt.Sprintf("%s %g", teamName(e.TeamCompeting), e.Score))
		} else {
			parts = append(parts, teamName(e.TeamCompeting))
		}
	}
	line := strings.Join(parts, " vs ")
	if m.Winner != nil {
		line += " -> " + m.Winner.Name
	}
	return line
}

func (f *outputFormatter) roundResult(res *services.RoundResult) error {
	if f.format == "json" {
		return f.json(res)
	}
	for _, m := range res.Resolved {
		fmt.Fprintf(f.w, "matchup %d won by %s\n", m.ID, teamName(m.Winner))
	}
	switch {
	case res.Completed:
		fmt.Fprintln(f.w, "tournament complete")
		for _, p := range res.Payouts {
			fmt.Fprintf(f.w, "  place %d: %s %.2f\n", p.Place, teamName(p.Team), p.Amount)
		}
	case res.Advanced:
		fmt.Fprintf(f.w, "advanced to round %d\n", res.CurrentRound)
	}
	return nil
}
