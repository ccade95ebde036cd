package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// OverrideActivityRequest asks for a summary of admin pricing activity.
// RoomID narrows set/clear counts to one room; reverts always count.
type OverrideActivityRequest struct {
	Range  TimeRange `json:"range"`
	RoomID string    `json:"room_id,omitempty"`
}

// OverrideActivity is derived from the immutable audit log only.
type OverrideActivity struct {
	Range  TimeRange `json:"range"`
	RoomID string    `json:"room_id,omitempty"`

	OverridesSet     int `json:"overrides_set"`
	OverridesCleared int `json:"overrides_cleared"`

	// WeeklyReverts counts revert runs; RevertedOverrides sums what they removed.
	WeeklyReverts     int `json:"weekly_reverts"`
	RevertedOverrides int `json:"reverted_overrides"`

	RoomsTouched []string      `json:"rooms_touched"`
	ByActor      map[string]int `json:"by_actor"`

	// Price stats over override_set events; zero when none were set.
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	AveragePrice float64 `json:"average_price"`
}
