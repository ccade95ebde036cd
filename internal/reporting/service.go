package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/audit"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// maxRange bounds one report so a single request cannot scan the whole log.
const maxRange = 366 * 24 * time.Hour

// Repository abstracts data access for reporting.
//
// Implementations should query immutable sources only (the audit log).
type Repository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]audit.Event, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// OverrideActivity aggregates override sets, clears and weekly reverts in
// [From, To).
func (s *Service) OverrideActivity(ctx context.Context, req OverrideActivityRequest) (OverrideActivity, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return OverrideActivity{}, ErrInvalidRequest
	}
	if req.Range.To.Sub(req.Range.From) > maxRange {
		return OverrideActivity{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return OverrideActivity{}, errors.New("reporting: repository not configured")
	}

	events, err := s.repo.ListBetween(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return OverrideActivity{}, err
	}

	out := OverrideActivity{
		Range:        req.Range,
		RoomID:       req.RoomID,
		RoomsTouched: []string{},
		ByActor:      map[string]int{},
	}
	rooms := map[string]struct{}{}
	sum := decimal.Zero
	priced := 0

	for _, e := range events {
		if e.Type == audit.EventTypeOverridesReverted {
			out.WeeklyReverts++
			out.RevertedOverrides += revertedCount(e.Metadata)
			continue
		}
		if req.RoomID != "" && e.RoomID != req.RoomID {
			continue
		}

		switch e.Type {
		case audit.EventTypeOverrideSet:
			out.OverridesSet++
			if e.Price != nil {
				p := *e.Price
				if priced == 0 || p < out.MinPrice {
					out.MinPrice = p
				}
				if priced == 0 || p > out.MaxPrice {
					out.MaxPrice = p
				}
				sum = sum.Add(decimal.NewFromFloat(p))
				priced++
			}
		case audit.EventTypeOverrideCleared:
			out.OverridesCleared++
		default:
			continue
		}

		rooms[e.RoomID] = struct{}{}
		actor := e.ActorUserID
		if actor == "" {
			actor = "unknown"
		}
		out.ByActor[actor]++
	}

	for id := range rooms {
		out.RoomsTouched = append(out.RoomsTouched, id)
	}
	sort.Strings(out.RoomsTouched)
	if priced > 0 {
		out.AveragePrice = sum.Div(decimal.NewFromInt(int64(priced))).Round(2).InexactFloat64()
	}
	return out, nil
}

// revertedCount reads the cleared count from a revert event's metadata.
// Malformed metadata counts as zero.
func revertedCount(metadata string) int {
	if metadata == "" {
		return 0
	}
	var m audit.RevertMetadata
	if err := json.Unmarshal([]byte(metadata), &m); err != nil {
		return 0
	}
	return m.Cleared
}
