package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/Dosada05/tournament-tracker/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// alerter renders the tournament notifications and hands them to a Notifier.
// Delivery failures are logged and dropped.
type alerter struct {
	notifier Notifier
	sender   string
	printer  *message.Printer
	logger   *slog.Logger
}

func newAlerter(notifier Notifier, sender string, logger *slog.Logger) *alerter {
	if sender == "" {
		sender = "Tournament Tracker"
	}
	return &alerter{
		notifier: notifier,
		sender:   sender,
		printer:  message.NewPrinter(language.English),
		logger:   logger,
	}
}

func (a *alerter) money(amount float64) string {
	return a.printer.Sprintf("$%.2f", amount)
}

func renderTemplate(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return body.String(), nil
}

func (a *alerter) send(ctx context.Context, to, bcc []string, subject, tmpl string, data any) {
	body, err := renderTemplate(tmpl, data)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to render notification", slog.String("template", tmpl), slog.Any("error", err))
		return
	}
	if err := a.notifier.Send(ctx, to, bcc, subject, body); err != nil {
		a.logger.WarnContext(ctx, "failed to send notification",
			slog.String("subject", subject),
			slog.Any("error", err))
	}
}

// alertRound tells every member of every team in the given round who they
// face next, or that they have a bye. Members without an email are skipped.
func (a *alerter) alertRound(ctx context.Context, t *models.Tournament, round int) {
	if round < 1 || round > len(t.Rounds) {
		return
	}
	for _, m := range t.Rounds[round-1] {
		for _, e := range m.Entries {
			if e.TeamCompeting == nil {
				continue
			}
			a.alertTeam(ctx, t, m, e.TeamCompeting)
		}
	}
}

func (a *alerter) alertTeam(ctx context.Context, t *models.Tournament, m *models.Matchup, team *models.Team) {
	data := struct {
		TournamentName string
		Round          int
		Opponent       string
		Sender         string
	}{TournamentName: t.Name, Round: m.Round, Sender: a.sender}

	subject, tmpl := "You have a bye this round", "bye.html"
	if opp := m.Opponent(team); opp != nil && opp.TeamCompeting != nil {
		data.Opponent = opp.TeamCompeting.Name
		subject, tmpl = "You have a new matchup with "+opp.TeamCompeting.Name, "new_matchup.html"
	}

	for _, email := range team.Emails() {
		a.send(ctx, []string{email}, nil, subject, tmpl, data)
	}
}

// alertCompleted sends one message to every entrant, all addresses in bcc.
func (a *alerter) alertCompleted(ctx context.Context, t *models.Tournament, payouts []Payout) {
	final := t.FinalMatchup()
	if final == nil || final.Winner == nil {
		return
	}

	type payoutLine struct{ Team, Amount string }
	data := struct {
		TournamentName string
		Champion       string
		Payouts        []payoutLine
		Sender         string
	}{TournamentName: t.Name, Champion: final.Winner.Name, Sender: a.sender}
	for _, p := range payouts {
		if p.Amount > 0 && p.Team != nil {
			data.Payouts = append(data.Payouts, payoutLine{Team: p.Team.Name, Amount: a.money(p.Amount)})
		}
	}

	var bcc []string
	for _, team := range t.Teams {
		bcc = append(bcc, team.Emails()...)
	}
	if len(bcc) == 0 {
		return
	}
	subject := fmt.Sprintf("In %s, %s has won!", t.Name, final.Winner.Name)
	a.send(ctx, nil, bcc, subject, "completed.html", data)
}
