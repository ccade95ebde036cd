package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultNightlyRate is used when a room has no usable reference rate.
const DefaultNightlyRate = 100.0

// preferredWeekdays are the low-demand anchor days, in order of preference.
var preferredWeekdays = []time.Weekday{time.Sunday, time.Monday, time.Tuesday}

type BaselineSource string

const (
	BaselineSourceWeekday  BaselineSource = "weekday"
	BaselineSourceWeekly   BaselineSource = "weekly"
	BaselineSourceFallback BaselineSource = "fallback"
)

// Baseline is the resolved pre-discount nightly price for a room.
type Baseline struct {
	Nightly float64
	Source  BaselineSource

	// Date is the daily-rate key used when Source is BaselineSourceWeekday.
	Date string

	// Warning is ErrRateUnavailable when the fallback rate was used.
	Warning error
}

// Resolver turns a room's reference rates into a nightly baseline.
// It never fails: missing data resolves to DefaultNightly with a warning.
type Resolver struct {
	DefaultNightly float64
}

func NewResolver(defaultNightly float64) Resolver {
	if !isFinite(defaultNightly) || defaultNightly <= 0 {
		defaultNightly = DefaultNightlyRate
	}
	return Resolver{DefaultNightly: defaultNightly}
}

// Resolve picks, in order:
//  1. the earliest daily rate on Sunday, else Monday, else Tuesday;
//  2. WeeklyRate / 7;
//  3. DefaultNightly, flagged with ErrRateUnavailable.
func (r Resolver) Resolve(room Room) Baseline {
	if date, rate, ok := preferredDailyRate(room.DailyRates); ok {
		return Baseline{Nightly: rate, Source: BaselineSourceWeekday, Date: date}
	}

	if isFinite(room.WeeklyRate) && room.WeeklyRate > 0 {
		nightly := decimal.NewFromFloat(room.WeeklyRate).Div(decimal.NewFromInt(7)).Round(2)
		return Baseline{Nightly: nightly.InexactFloat64(), Source: BaselineSourceWeekly}
	}

	def := r.DefaultNightly
	if !isFinite(def) || def <= 0 {
		def = DefaultNightlyRate
	}
	return Baseline{Nightly: round2(def).InexactFloat64(), Source: BaselineSourceFallback, Warning: ErrRateUnavailable}
}

func preferredDailyRate(rates map[string]float64) (string, float64, bool) {
	if len(rates) == 0 {
		return "", 0, false
	}

	byDay := make(map[time.Weekday][]string, len(preferredWeekdays))
	for key, rate := range rates {
		if !isFinite(rate) || rate < 0 {
			continue
		}
		d, err := time.Parse(time.DateOnly, key)
		if err != nil {
			continue
		}
		byDay[d.Weekday()] = append(byDay[d.Weekday()], key)
	}

	for _, wd := range preferredWeekdays {
		keys := byDay[wd]
		if len(keys) == 0 {
			continue
		}
		// ISO dates sort chronologically as strings.
		sort.Strings(keys)
		return keys[0], round2(rates[keys[0]]).InexactFloat64(), true
	}
	return "", 0, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
