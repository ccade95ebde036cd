package pricing

import "time"

// Pricing models are currency-agnostic. Amounts are plain per-night figures
// rounded to 2 decimals at the quote boundary.

// Room is the externally maintained reference data for one bookable room.
// It is read-only to this package.
type Room struct {
	ID string `json:"id" yaml:"id" db:"room_id"`

	// WeeklyRate is the marketplace price for a 7-night stay.
	WeeklyRate float64 `json:"weekly_rate" yaml:"weekly_rate" db:"weekly_rate"`

	// DailyRates optionally carries nightly rates keyed by ISO date (2006-01-02).
	DailyRates map[string]float64 `json:"daily_rates,omitempty" yaml:"daily_rates,omitempty" db:"daily_rates"`
}

// PriceQuote is the displayed price for one room at one instant. Not persisted.
type PriceQuote struct {
	RoomID string `json:"room_id"`

	Baseline          float64 `json:"baseline"`
	DirectDiscountPct float64 `json:"direct_discount_pct"`
	LateDiscountPct   float64 `json:"late_discount_pct"`
	TotalDiscountPct  float64 `json:"total_discount_pct"`
	Final             float64 `json:"final"`
	Savings           float64 `json:"savings"`

	Source         QuoteSource    `json:"source"`
	BaselineSource BaselineSource `json:"baseline_source"`

	// Warnings carries soft failures (missing rates, unreachable store).
	Warnings []string `json:"warnings,omitempty"`

	QuotedAt time.Time `json:"quoted_at"`
}

type QuoteSource string

const (
	QuoteSourceRule     QuoteSource = "rule"
	QuoteSourceOverride QuoteSource = "override"
)

// Override is a staff-entered nightly price that supersedes the rule-based
// price until the next weekly revert.
type Override struct {
	RoomID string    `json:"room_id" db:"room_id"`
	Price  float64   `json:"price" db:"price"`
	SetAt  time.Time `json:"set_at" db:"set_at"`

	// SetBy is the admin user that entered the price (best-effort).
	SetBy string `json:"set_by,omitempty" db:"set_by"`
}
