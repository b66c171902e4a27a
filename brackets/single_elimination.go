package brackets

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Dosada05/tournament-tracker/models"
)

// ShuffleFunc reorders teams in place.
type ShuffleFunc func(teams []*models.Team)

// RandomShuffle is a uniform Fisher-Yates shuffle.
func RandomShuffle(teams []*models.Team) {
	rand.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
}

type SingleEliminationGenerator struct {
	shuffle ShuffleFunc
	logger  *slog.Logger
}

// NewSingleEliminationGenerator uses RandomShuffle when shuffle is nil.
func NewSingleEliminationGenerator(shuffle ShuffleFunc, logger *slog.Logger) *SingleEliminationGenerator {
	if shuffle == nil {
		shuffle = RandomShuffle
	}
	return &SingleEliminationGenerator{shuffle: shuffle, logger: logger}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// RoundCount is the number of rounds needed for n entrants: the smallest r
// with 2^r >= n, and 1 for n <= 2.
func RoundCount(n int) int {
	rounds := 1
	for size := 2; size < n; size *= 2 {
		rounds++
	}
	return rounds
}

// ByeCount is the number of empty slots in a full bracket of n entrants.
func ByeCount(n int) int {
	return 1<<RoundCount(n) - n
}

// GenerateBracket shuffles the entrants and lays out every round. Round one
// holds all byes first, then the paired matchups. Later rounds hold
// placeholder entries whose parent is the previous round's matchup.
// The tournament itself is left untouched.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([][]*models.Matchup, error) {
	if params.Tournament != nil && len(params.Tournament.Rounds) > 0 {
		return nil, ErrBracketAlreadyBuilt
	}
	n := len(params.Teams)
	if n < 2 {
		return nil, ErrNotEnoughEntrants
	}

	teams := make([]*models.Team, n)
	copy(teams, params.Teams)
	g.shuffle(teams)

	numRounds := RoundCount(n)
	numByes := ByeCount(n)

	g.logger.Debug("generating single elimination bracket",
		slog.Int("entrants", n),
		slog.Int("rounds", numRounds),
		slog.Int("byes", numByes))

	rounds := make([][]*models.Matchup, 0, numRounds)
	rounds = append(rounds, firstRound(teams, numByes))

	for r := 2; r <= numRounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := nextRound(rounds[r-2], r)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, next)
	}
	return rounds, nil
}

func firstRound(teams []*models.Team, numByes int) []*models.Matchup {
	round := make([]*models.Matchup, 0, (len(teams)+numByes)/2)
	var current *models.Matchup
	for _, team := range teams {
		if current == nil {
			current = &models.Matchup{Round: 1}
		}
		current.Entries = append(current.Entries, &models.MatchupEntry{TeamCompeting: team})

		if numByes > 0 || len(current.Entries) == 2 {
			round = append(round, current)
			current = nil
			if numByes > 0 {
				numByes--
			}
		}
	}
	return round
}

func nextRound(prev []*models.Matchup, roundNo int) ([]*models.Matchup, error) {
	if len(prev)%2 != 0 {
		return nil, fmt.Errorf("%w: round %d has %d matchups", ErrUnpairedMatchup, roundNo-1, len(prev))
	}
	round := make([]*models.Matchup, 0, len(prev)/2)
	for i := 0; i < len(prev); i += 2 {
		round = append(round, &models.Matchup{
			Round: roundNo,
			Entries: []*models.MatchupEntry{
				{ParentMatchup: prev[i]},
				{ParentMatchup: prev[i+1]},
			},
		})
	}
	return round, nil
}
