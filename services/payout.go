package services

import "github.com/Dosada05/tournament-tracker/models"

// Payout is the amount owed for one finishing place.
type Payout struct {
	Place     int          `json:"place"`
	PlaceName string       `json:"place_name"`
	Team      *models.Team `json:"team"`
	Amount    float64      `json:"amount"`
}

// CalculatePayouts computes the first and second place payouts of a finished
// tournament. A place without a configured prize pays 0. Places beyond second
// are never paid.
func CalculatePayouts(t *models.Tournament) []Payout {
	final := t.FinalMatchup()
	var champion, runnerUp *models.Team
	if final != nil && final.Winner != nil {
		champion = final.Winner
		if e := final.Opponent(champion); e != nil {
			runnerUp = e.TeamCompeting
		}
	}

	income := t.TotalIncome()
	payouts := make([]Payout, 0, 2)
	for place, team := range []*models.Team{champion, runnerUp} {
		p := Payout{Place: place + 1, Team: team}
		if prize := prizeForPlace(t.Prizes, p.Place); prize != nil {
			p.PlaceName = prize.PlaceName
			p.Amount = prize.Payout(income)
		}
		payouts = append(payouts, p)
	}
	return payouts
}

func prizeForPlace(prizes []*models.Prize, place int) *models.Prize {
	for _, p := range prizes {
		if p.PlaceNumber == place {
			return p
		}
	}
	return nil
}
