package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DirectDiscountPct rewards booking directly instead of through a marketplace.
	DirectDiscountPct = 0.10
	// LateDiscountPct applies Sunday through Wednesday only.
	LateDiscountPct = 0.15
)

// Calculator derives a quote from a nightly baseline and an instant.
//
// Contract:
// - Pure and deterministic; no I/O and no hidden clock.
// - Discounts are additive, never compounded.
// - The final price is floored at 0 and never exceeds the baseline.
type Calculator struct {
	// Location defines the calendar used for the late window.
	// Nil means UTC.
	Location *time.Location
}

func NewCalculator(loc *time.Location) Calculator {
	return Calculator{Location: loc}
}

// Quote computes the rule-based quote for baseline at now.
func (c Calculator) Quote(baseline float64, now time.Time) PriceQuote {
	base := round2(nonNegative(baseline))

	direct := decimal.NewFromFloat(DirectDiscountPct)
	late := decimal.Zero
	if inLateWindow(now, c.Location) {
		late = decimal.NewFromFloat(LateDiscountPct)
	}
	total := clampPct(direct.Add(late))

	final := base.Mul(decimal.NewFromInt(1).Sub(total)).Round(2)
	if final.IsNegative() {
		final = decimal.Zero
	}
	if final.GreaterThan(base) {
		final = base
	}
	savings := base.Sub(final).Round(2)

	return PriceQuote{
		Baseline:          base.InexactFloat64(),
		DirectDiscountPct: direct.InexactFloat64(),
		LateDiscountPct:   late.InexactFloat64(),
		TotalDiscountPct:  total.InexactFloat64(),
		Final:             final.InexactFloat64(),
		Savings:           savings.InexactFloat64(),
		Source:            QuoteSourceRule,
		QuotedAt:          now,
	}
}

// overrideQuote reports a staff price against the computed baseline.
// Savings may be negative when staff priced above the baseline; the derived
// total discount is clamped to [0, 1].
func overrideQuote(baseline float64, o Override, now time.Time) PriceQuote {
	base := round2(nonNegative(baseline))
	final := round2(nonNegative(o.Price))

	total := decimal.Zero
	if base.IsPositive() {
		total = clampPct(decimal.NewFromInt(1).Sub(final.Div(base))).Round(4)
	}

	return PriceQuote{
		Baseline:         base.InexactFloat64(),
		TotalDiscountPct: total.InexactFloat64(),
		Final:            final.InexactFloat64(),
		Savings:          base.Sub(final).Round(2).InexactFloat64(),
		Source:           QuoteSourceOverride,
		QuotedAt:         now,
	}
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func nonNegative(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}

func clampPct(p decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(one) {
		return one
	}
	return p
}
