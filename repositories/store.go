package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-tracker/models"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrReferentialIntegrity = errors.New("referential integrity violated")

	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrMatchupNotFound      = errors.New("matchup not found")
	ErrMatchupEntryNotFound = errors.New("matchup entry not found")
	ErrUnknownBackend       = errors.New("unknown storage backend")
)

// Store is the persistence contract shared by every backend. Create methods
// assign the new ID to the model and also return it. Get methods return
// fully resolved entity graphs.
type Store interface {
	CreatePerson(ctx context.Context, p *models.Person) (int, error)
	CreatePrize(ctx context.Context, p *models.Prize) (int, error)
	CreateTeam(ctx context.Context, t *models.Team) (int, error)
	CreateTournament(ctx context.Context, t *models.Tournament) (int, error)

	GetAllPeople(ctx context.Context) ([]*models.Person, error)
	GetAllPrizes(ctx context.Context) ([]*models.Prize, error)
	GetAllTeams(ctx context.Context) ([]*models.Team, error)
	GetAllTournaments(ctx context.Context) ([]*models.Tournament, error)

	UpdateMatchup(ctx context.Context, m *models.Matchup) error
	CompleteTournament(ctx context.Context, t *models.Tournament) error
}

// ValidationError reports a malformed record or field.
type ValidationError struct {
	Table string
	Line  int // 1-based; 0 when the value did not come from a file
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s %q", e.Table, e.Field, e.Value)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s line %d: invalid %s %q", e.Table, e.Line, e.Field, e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// ReferentialIntegrityError reports a reference to an ID that does not exist
// in the target table.
type ReferentialIntegrityError struct {
	Table    string
	Field    string
	RefTable string
	ID       int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s.%s references missing %s id %d", e.Table, e.Field, e.RefTable, e.ID)
}

func (e *ReferentialIntegrityError) Unwrap() error {
	return ErrReferentialIntegrity
}
