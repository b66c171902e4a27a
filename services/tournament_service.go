package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-tracker/brackets"
	"github.com/Dosada05/tournament-tracker/models"
	"github.com/Dosada05/tournament-tracker/repositories"
	"github.com/Dosada05/tournament-tracker/storage"
	"golang.org/x/sync/errgroup"
)

// ScorePolicy decides which of two different scores wins a matchup.
type ScorePolicy int

const (
	HighScoreWins ScorePolicy = iota
	LowScoreWins
)

func ParseScorePolicy(s string) (ScorePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "high":
		return HighScoreWins, nil
	case "low":
		return LowScoreWins, nil
	}
	return 0, fmt.Errorf("%w: unknown score policy %q", ErrValidationFailed, s)
}

func (p ScorePolicy) String() string {
	if p == LowScoreWins {
		return "low"
	}
	return "high"
}

// Archiver stores a summary document of a completed tournament.
type Archiver interface {
	Archive(ctx context.Context, name string, doc any) (*storage.UploadResult, error)
}

type CreateTournamentInput struct {
	Name     string
	EntryFee float64
	TeamIDs  []int
	PrizeIDs []int
}

// RoundResult describes what one UpdateResults pass changed.
type RoundResult struct {
	Resolved     []*models.Matchup
	Propagated   []*models.Matchup
	CurrentRound int
	Advanced     bool
	Completed    bool
	Payouts      []Payout
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	UpdateResults(ctx context.Context, t *models.Tournament) (*RoundResult, error)
	RecordScores(ctx context.Context, t *models.Tournament, matchupID int, scores ...float64) (*RoundResult, error)
}

type tournamentService struct {
	store     repositories.Store
	generator brackets.BracketGenerator
	alerts    *alerter
	archiver  Archiver
	policy    ScorePolicy
	logger    *slog.Logger
}

// NewTournamentService wires the tournament workflow. archiver may be nil to
// skip archiving completed tournaments.
func NewTournamentService(
	store repositories.Store,
	generator brackets.BracketGenerator,
	notifier Notifier,
	archiver Archiver,
	policy ScorePolicy,
	senderName string,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		store:     store,
		generator: generator,
		alerts:    newAlerter(notifier, senderName, logger),
		archiver:  archiver,
		policy:    policy,
		logger:    logger,
	}
}

// CreateTournament builds the bracket, persists it, resolves the first-round
// byes and alerts the round one participants.
func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if err := checkSingleLine("tournament name", name); err != nil {
		return nil, err
	}
	if input.EntryFee < 0 {
		return nil, ErrEntryFeeNegative
	}
	if len(input.TeamIDs) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	teams, prizes, err := s.loadEntrants(ctx, input.TeamIDs, input.PrizeIDs)
	if err != nil {
		return nil, err
	}

	t := &models.Tournament{Name: name, EntryFee: input.EntryFee, Teams: teams, Prizes: prizes}
	rounds, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{Tournament: t, Teams: teams})
	if err != nil {
		return nil, fmt.Errorf("failed to generate bracket: %w", err)
	}
	t.Rounds = rounds

	if _, err := s.store.CreateTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save tournament: %w", err)
	}
	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("name", t.Name),
		slog.Int("teams", len(t.Teams)),
		slog.Int("rounds", len(t.Rounds)))

	if _, err := s.UpdateResults(ctx, t); err != nil {
		return t, fmt.Errorf("failed to resolve byes: %w", err)
	}
	s.alerts.alertRound(ctx, t, 1)
	return t, nil
}

// loadEntrants resolves team and prize IDs concurrently, keeping input order.
func (s *tournamentService) loadEntrants(ctx context.Context, teamIDs, prizeIDs []int) ([]*models.Team, []*models.Prize, error) {
	var (
		teams  []*models.Team
		prizes []*models.Prize
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := s.store.GetAllTeams(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		byID := make(map[int]*models.Team, len(all))
		for _, t := range all {
			byID[t.ID] = t
		}
		seen := make(map[int]bool, len(teamIDs))
		for _, id := range teamIDs {
			t, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
			}
			if seen[id] {
				return fmt.Errorf("%w: team %d entered twice", ErrValidationFailed, id)
			}
			seen[id] = true
			teams = append(teams, t)
		}
		return nil
	})
	g.Go(func() error {
		if len(prizeIDs) == 0 {
			return nil
		}
		all, err := s.store.GetAllPrizes(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load prizes: %w", err)
		}
		byID := make(map[int]*models.Prize, len(all))
		for _, p := range all {
			byID[p.ID] = p
		}
		for _, id := range prizeIDs {
			p, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: id %d", ErrPrizeNotFound, id)
			}
			prizes = append(prizes, p)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return teams, prizes, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]*models.Tournament, error) {
	ts, err := s.store.GetAllTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return ts, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	ts, err := s.ListTournaments(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
}

// RecordScores sets the scores of one matchup, in entry order, and runs
// UpdateResults. On a tie the previous scores are put back and nothing is
// saved.
func (s *tournamentService) RecordScores(ctx context.Context, t *models.Tournament, matchupID int, scores ...float64) (*RoundResult, error) {
	m := t.FindMatchup(matchupID)
	if m == nil {
		return nil, fmt.Errorf("%w: id %d", ErrMatchupNotFound, matchupID)
	}
	if m.IsResolved() {
		return nil, fmt.Errorf("%w: id %d", ErrMatchupAlreadyResolved, matchupID)
	}
	for _, e := range m.Entries {
		if e.TeamCompeting == nil {
			return nil, fmt.Errorf("%w: id %d", ErrMatchupNotReady, matchupID)
		}
	}
	if len(scores) != len(m.Entries) {
		return nil, fmt.Errorf("%w: matchup %d has %d entries, got %d scores", ErrScoreCountMismatch, matchupID, len(m.Entries), len(scores))
	}

	previous := make([]float64, len(m.Entries))
	for i, e := range m.Entries {
		previous[i] = e.Score
		e.Score = scores[i]
	}

	result, err := s.UpdateResults(ctx, t)
	if err != nil {
		if errors.Is(err, ErrTie) {
			for i, e := range m.Entries {
				e.Score = previous[i]
			}
		}
		return nil, err
	}
	if !m.IsResolved() {
		// A zero score leaves the matchup open; keep what was entered.
		if err := s.store.UpdateMatchup(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to save scores of matchup %d: %w", m.ID, err)
		}
	}
	return result, nil
}

// UpdateResults resolves every matchup that can be decided, moves winners
// into the next round and persists what changed. When the current round
// advances its participants are alerted; when nothing is left to play the
// tournament is completed.
//
// Ties abort the pass before anything is modified. The returned error joins
// one *TieError per tied matchup.
func (s *tournamentService) UpdateResults(ctx context.Context, t *models.Tournament) (*RoundResult, error) {
	result := &RoundResult{}
	startRound := t.CurrentRound()
	if startRound == 0 {
		return s.complete(ctx, t, result)
	}

	type decision struct {
		matchup *models.Matchup
		winner  *models.Team
	}
	var (
		decisions []decision
		ties      []error
	)
	for _, round := range t.Rounds {
		for _, m := range round {
			if m.IsResolved() || !resolvable(m) {
				continue
			}
			winner, err := s.decideWinner(m)
			if err != nil {
				ties = append(ties, err)
				continue
			}
			decisions = append(decisions, decision{matchup: m, winner: winner})
		}
	}
	if len(ties) > 0 {
		return nil, errors.Join(ties...)
	}

	dirty := make(map[int]bool)
	for _, d := range decisions {
		d.matchup.Winner = d.winner
		dirty[d.matchup.ID] = true
		result.Resolved = append(result.Resolved, d.matchup)
	}
	for _, d := range decisions {
		for _, m := range propagateWinner(t, d.matchup) {
			if !dirty[m.ID] {
				result.Propagated = append(result.Propagated, m)
			}
			dirty[m.ID] = true
		}
	}

	for _, round := range t.Rounds {
		for _, m := range round {
			if !dirty[m.ID] {
				continue
			}
			if err := s.store.UpdateMatchup(ctx, m); err != nil {
				return nil, fmt.Errorf("failed to save matchup %d: %w", m.ID, err)
			}
		}
	}

	result.CurrentRound = t.CurrentRound()
	if result.CurrentRound == 0 {
		return s.complete(ctx, t, result)
	}
	if result.CurrentRound > startRound {
		result.Advanced = true
		s.logger.InfoContext(ctx, "round advanced",
			slog.Int("tournament_id", t.ID),
			slog.Int("round", result.CurrentRound))
		s.alerts.alertRound(ctx, t, result.CurrentRound)
	}
	return result, nil
}

// resolvable reports whether a matchup has everything needed to pick a
// winner: a single entry, or two entries with teams and nonzero scores.
func resolvable(m *models.Matchup) bool {
	if m.IsBye() {
		return m.Entries[0].TeamCompeting != nil
	}
	for _, e := range m.Entries {
		if e.TeamCompeting == nil || e.Score == 0 {
			return false
		}
	}
	return len(m.Entries) > 0
}

func (s *tournamentService) decideWinner(m *models.Matchup) (*models.Team, error) {
	if m.IsBye() {
		return m.Entries[0].TeamCompeting, nil
	}
	a, b := m.Entries[0], m.Entries[1]
	if a.Score == b.Score {
		return nil, &TieError{MatchupID: m.ID, Round: m.Round, Score: a.Score}
	}
	aWins := a.Score > b.Score
	if s.policy == LowScoreWins {
		aWins = !aWins
	}
	if aWins {
		return a.TeamCompeting, nil
	}
	return b.TeamCompeting, nil
}

// propagateWinner copies the winner of m into every entry whose parent is m
// and returns the matchups that received it.
func propagateWinner(t *models.Tournament, m *models.Matchup) []*models.Matchup {
	var changed []*models.Matchup
	if m.Round < 1 || m.Round > len(t.Rounds) {
		return nil
	}
	for _, round := range t.Rounds[m.Round:] {
		for _, next := range round {
			for _, e := range next.Entries {
				if e.ParentMatchup != nil && e.ParentMatchup.ID == m.ID {
					e.TeamCompeting = m.Winner
					changed = append(changed, next)
				}
			}
		}
	}
	return changed
}

// complete removes the tournament from the active store, then notifies and
// archives. Notification and archive failures are only logged.
func (s *tournamentService) complete(ctx context.Context, t *models.Tournament, result *RoundResult) (*RoundResult, error) {
	if err := s.store.CompleteTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to complete tournament %d: %w", t.ID, err)
	}
	result.Completed = true
	result.CurrentRound = 0
	result.Payouts = CalculatePayouts(t)

	champion := ""
	if final := t.FinalMatchup(); final != nil && final.Winner != nil {
		champion = final.Winner.Name
	}
	s.logger.InfoContext(ctx, "tournament completed",
		slog.Int("tournament_id", t.ID),
		slog.String("champion", champion))

	s.alerts.alertCompleted(ctx, t, result.Payouts)

	if s.archiver != nil {
		res, err := s.archiver.Archive(ctx, t.Name, newTournamentSummary(t, result.Payouts))
		if err != nil {
			s.logger.WarnContext(ctx, "failed to archive tournament",
				slog.Int("tournament_id", t.ID),
				slog.Any("error", err))
		} else {
			s.logger.InfoContext(ctx, "tournament archived",
				slog.Int("tournament_id", t.ID),
				slog.String("key", res.Key))
		}
	}
	return result, nil
}

// tournamentSummary is the archived record of a finished tournament.
type tournamentSummary struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	EntryFee float64            `json:"entry_fee"`
	Champion string             `json:"champion"`
	Payouts  []summaryPayout    `json:"payouts"`
	Rounds   [][]summaryMatchup `json:"rounds"`
}

// summaryPayout names the paid team without its members' contact details.
type summaryPayout struct {
	Place     int     `json:"place"`
	PlaceName string  `json:"place_name"`
	Team      string  `json:"team"`
	Amount    float64 `json:"amount"`
}

type summaryMatchup struct {
	ID     int       `json:"id"`
	Teams  []string  `json:"teams"`
	Scores []float64 `json:"scores"`
	Winner string    `json:"winner"`
}

func newTournamentSummary(t *models.Tournament, payouts []Payout) tournamentSummary {
	sum := tournamentSummary{ID: t.ID, Name: t.Name, EntryFee: t.EntryFee}
	for _, p := range payouts {
		sp := summaryPayout{Place: p.Place, PlaceName: p.PlaceName, Amount: p.Amount}
		if p.Team != nil {
			sp.Team = p.Team.Name
		}
		sum.Payouts = append(sum.Payouts, sp)
	}
	if final := t.FinalMatchup(); final != nil && final.Winner != nil {
		sum.Champion = final.Winner.Name
	}
	for _, round := range t.Rounds {
		rs := make([]summaryMatchup, 0, len(round))
		for _, m := range round {
			sm := summaryMatchup{ID: m.ID}
			for _, e := range m.Entries {
				name := ""
				if e.TeamCompeting != nil {
					name = e.TeamCompeting.Name
				}
				sm.Teams = append(sm.Teams, name)
				sm.Scores = append(sm.Scores, e.Score)
			}
			if m.Winner != nil {
				sm.Winner = m.Winner.Name
			}
			rs = append(rs, sm)
		}
		sum.Rounds = append(sum.Rounds, rs)
	}
	return sum
}
