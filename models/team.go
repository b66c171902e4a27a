package models

type Team struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Members []*Person `json:"members"`
}

// Emails returns the non-empty member addresses in member order.
func (t *Team) Emails() []string {
	out := make([]string, 0, len(t.Members))
	for _, p := range t.Members {
		if p != nil && p.Email != "" {
			out = append(out, p.Email)
		}
	}
	return out
}
