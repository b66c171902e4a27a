package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-tracker/brackets"
)

var (
	ErrValidationFailed = errors.New("validation failed")

	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrEntryFeeNegative       = errors.New("entry fee cannot be negative")
	ErrTeamNameRequired       = errors.New("team name is required")
	ErrTeamMembersRequired    = errors.New("team needs at least one member")
	ErrPersonFieldsRequired   = errors.New("first and last name are required")
	ErrPrizeInvalid           = errors.New("invalid prize")

	ErrNotEnoughEntrants      = brackets.ErrNotEnoughEntrants
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrPersonNotFound         = errors.New("person not found")
	ErrTeamNotFound           = errors.New("team not found")
	ErrPrizeNotFound          = errors.New("prize not found")
	ErrMatchupNotFound        = errors.New("matchup not found in tournament")
	ErrMatchupAlreadyResolved = errors.New("matchup already has a winner")
	ErrMatchupNotReady        = errors.New("matchup is waiting for a previous round")
	ErrScoreCountMismatch     = errors.New("one score per matchup entry is required")

	ErrTie = errors.New("matchup is tied")
)

// TieError reports a two-entry matchup whose entries scored the same.
type TieError struct {
	MatchupID int
	Round     int
	Score     float64
}

func (e *TieError) Error() string {
	return fmt.Sprintf("matchup %d (round %d) is tied at %g; ties are not resolved automatically", e.MatchupID, e.Round, e.Score)
}

func (e *TieError) Is(target error) bool {
	return target == ErrTie
}
