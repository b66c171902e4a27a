package brackets

import (
	"context"
	"errors"

	"github.com/Dosada05/tournament-tracker/models"
)

var (
	ErrNotEnoughEntrants   = errors.New("not enough entrants to build a bracket (minimum 2)")
	ErrBracketAlreadyBuilt = errors.New("tournament already has a bracket")
	ErrUnpairedMatchup     = errors.New("round has an odd number of matchups")
)

type GenerateBracketParams struct {
	Tournament *models.Tournament
	Teams      []*models.Team
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([][]*models.Matchup, error)

	GetName() string
}
