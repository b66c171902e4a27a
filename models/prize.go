package models

// Prize describes the payout for one finishing place. A positive FixedAmount
// wins over Percentage.
type Prize struct {
	ID          int     `json:"id"`
	PlaceNumber int     `json:"place_number"`
	PlaceName   string  `json:"place_name"`
	FixedAmount float64 `json:"fixed_amount"`
	Percentage  float64 `json:"percentage"`
}

// Payout returns the amount owed for this place given the total collected
// entry fees.
func (p *Prize) Payout(totalIncome float64) float64 {
	if p.FixedAmount > 0 {
		return p.FixedAmount
	}
	return totalIncome * p.Percentage / 100
}
