package models

// MatchupEntry is one side of a matchup. TeamCompeting is nil for an entry
// whose team is still to be decided by ParentMatchup. Score 0 means unset.
type MatchupEntry struct {
	ID            int      `json:"id"`
	TeamCompeting *Team    `json:"team_competing,omitempty"`
	Score         float64  `json:"score"`
	ParentMatchup *Matchup `json:"-"`
}

// ParentMatchupID returns 0 when the entry has no parent.
func (e *MatchupEntry) ParentMatchupID() int {
	if e.ParentMatchup == nil {
		return 0
	}
	return e.ParentMatchup.ID
}

type Matchup struct {
	ID      int             `json:"id"`
	Entries []*MatchupEntry `json:"entries"`
	Winner  *Team           `json:"winner,omitempty"`
	Round   int             `json:"round"`
}

func (m *Matchup) IsBye() bool {
	return len(m.Entries) == 1
}

func (m *Matchup) IsResolved() bool {
	return m.Winner != nil
}

// Opponent returns the entry facing the given team, or nil for a bye.
func (m *Matchup) Opponent(team *Team) *MatchupEntry {
	for _, e := range m.Entries {
		if sameTeam(e.TeamCompeting, team) {
			continue
		}
		return e
	}
	return nil
}

// sameTeam matches by pointer, then by ID when the ID has been assigned.
func sameTeam(a, b *Team) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || (a.ID != 0 && a.ID == b.ID)
}
