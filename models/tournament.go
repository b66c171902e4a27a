package models

// Tournament is a single-elimination event. Rounds[i] holds the matchups of
// round i+1 in insertion order.
type Tournament struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	EntryFee float64      `json:"entry_fee"`
	Teams    []*Team      `json:"teams"`
	Prizes   []*Prize     `json:"prizes"`
	Rounds   [][]*Matchup `json:"rounds"`
}

// TotalIncome is the entry fee collected from every entered team.
func (t *Tournament) TotalIncome() float64 {
	return t.EntryFee * float64(len(t.Teams))
}

// CurrentRound returns the 1-based number of the first round that still has
// an unresolved matchup, or 0 when every round is resolved.
func (t *Tournament) CurrentRound() int {
	for i, round := range t.Rounds {
		for _, m := range round {
			if !m.IsResolved() {
				return i + 1
			}
		}
	}
	return 0
}

// FinalMatchup returns the sole matchup of the last round.
func (t *Tournament) FinalMatchup() *Matchup {
	if len(t.Rounds) == 0 || len(t.Rounds[len(t.Rounds)-1]) == 0 {
		return nil
	}
	last := t.Rounds[len(t.Rounds)-1]
	return last[0]
}

func (t *Tournament) FindMatchup(id int) *Matchup {
	for _, round := range t.Rounds {
		for _, m := range round {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}
