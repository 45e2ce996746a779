package domain

// Well-known simulated venue names. VenueRaydium is listed first and wins
// exact price ties during routing.
const (
	VenueRaydium = "raydium"
	VenueMeteora = "meteora"
)

// Quote is a venue's price and fee response for a prospective swap. Quotes
// are ephemeral: they are never stored on their own, only embedded in
// decision-log entries.
type Quote struct {
	Venue   string  `json:"venue"`
	Price   float64 `json:"price"`
	FeeRate float64 `json:"fee_rate"`
}
