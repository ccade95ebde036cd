package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/pkg/logger"
)

// Service answers "what price should room X show right now" and exposes the
// admin override operations.
//
// Contract:
// - Every read reconciles the weekly revert first.
// - Reads never fail: storage or rate problems degrade to the rule-based
//   quote and are reported in PriceQuote.Warnings.
// - An override set before the current week start is never served, even when
//   the revert itself could not run.
// - Writes return *ValidationError or *PersistenceError.
type Service struct {
	rates     RateSource
	overrides OverrideStore
	scheduler *Scheduler

	resolver Resolver
	calc     Calculator
	loc      *time.Location

	audit   AuditLogger
	metrics *Metrics
	clock   func() time.Time
}

// Options carries the optional collaborators of a Service.
type Options struct {
	// Location defines "Sunday" and the late window. Nil means UTC.
	Location *time.Location
	// DefaultNightly replaces DefaultNightlyRate when positive.
	DefaultNightly float64

	Locker  Locker
	Audit   AuditLogger
	Metrics *Metrics
	Clock   func() time.Time
}

// AuditLogger records admin override activity. Failures are logged and never
// fail the operation.
type AuditLogger interface {
	LogOverrideSet(ctx context.Context, o Override, actor Actor) error
	LogOverrideCleared(ctx context.Context, roomID string, actor Actor) error
	LogOverridesReverted(ctx context.Context, weekStart time.Time, cleared int) error
}

// Actor identifies who performed an admin action.
type Actor struct {
	UserID string
	Role   string
}

func NewService(rates RateSource, overrides OverrideStore, boundary BoundaryStore, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	sched := NewScheduler(overrides, boundary, loc)
	if opts.Locker != nil {
		sched.Locker = opts.Locker
	}
	sched.Metrics = opts.Metrics
	sched.Now = clock
	if opts.Audit != nil {
		a := opts.Audit
		sched.OnRevert = func(ctx context.Context, weekStart time.Time, cleared int) {
			if err := a.LogOverridesReverted(ctx, weekStart, cleared); err != nil {
				logger.From(ctx).Warn("audit revert failed", "err", err)
			}
		}
	}

	return &Service{
		rates:     rates,
		overrides: overrides,
		scheduler: sched,
		resolver:  NewResolver(opts.DefaultNightly),
		calc:      NewCalculator(loc),
		loc:       loc,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		clock:     clock,
	}
}

// Scheduler exposes the revert scheduler for background ticking.
func (s *Service) Scheduler() *Scheduler { return s.scheduler }

// Location is the calendar the service prices in.
func (s *Service) Location() *time.Location { return s.loc }

// GetDisplayPrice returns the price room roomID shows at now. A zero now
// uses the service clock.
func (s *Service) GetDisplayPrice(ctx context.Context, roomID string, now time.Time) PriceQuote {
	now = s.at(now)
	warnings := s.reconcile(ctx, now)

	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	return s.quote(ctx, room, now, warnings)
}

// GetDisplayPrices quotes every room in the catalog. Only a failure to list
// the catalog is returned; per-room problems become warnings on that room.
func (s *Service) GetDisplayPrices(ctx context.Context, now time.Time) ([]PriceQuote, error) {
	now = s.at(now)
	rooms, err := s.rates.Rooms(ctx)
	if err != nil {
		s.metrics.IncStoreError("list_rooms")
		return nil, persistenceErr("list room rates", err)
	}

	warnings := s.reconcile(ctx, now)
	out := make([]PriceQuote, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, s.quote(ctx, rm, now, append([]string(nil), warnings...)))
	}
	return out, nil
}

// SetOverride validates and stores a staff price for roomID. The revert is
// reconciled first so a price entered just after Sunday midnight is not
// wiped by a revert that had not yet run.
func (s *Service) SetOverride(ctx context.Context, roomID string, price float64, actor Actor) (Override, error) {
	roomID = strings.TrimSpace(roomID)
	if err := validateOverride(roomID, price); err != nil {
		return Override{}, err
	}

	now := s.clock()
	if _, err := s.scheduler.Reconcile(ctx, now); err != nil {
		return Override{}, err
	}

	o := Override{
		RoomID: roomID,
		Price:  round2(price).InexactFloat64(),
		SetAt:  now.UTC(),
		SetBy:  actor.UserID,
	}
	if err := s.overrides.Set(ctx, o); err != nil {
		s.metrics.IncStoreError("set_override")
		return Override{}, persistenceErr("set override", err)
	}

	log := logger.From(ctx)
	if s.audit != nil {
		if err := s.audit.LogOverrideSet(ctx, o, actor); err != nil {
			log.Warn("audit override set failed", "room_id", roomID, "err", err)
		}
	}
	log.Info("override set", "room_id", roomID, "price", o.Price, "actor", actor.UserID)
	return o, nil
}

// ClearOverride removes the override for roomID. Clearing a room without an
// override succeeds.
func (s *Service) ClearOverride(ctx context.Context, roomID string, actor Actor) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return &ValidationError{Field: "room_id", Reason: "must not be empty"}
	}
	if err := s.overrides.Delete(ctx, roomID); err != nil {
		s.metrics.IncStoreError("delete_override")
		return persistenceErr("delete override", err)
	}

	log := logger.From(ctx)
	if s.audit != nil {
		if err := s.audit.LogOverrideCleared(ctx, roomID, actor); err != nil {
			log.Warn("audit override cleared failed", "room_id", roomID, "err", err)
		}
	}
	log.Info("override cleared", "room_id", roomID, "actor", actor.UserID)
	return nil
}

// ListOverrides returns the overrides live for the current week.
func (s *Service) ListOverrides(ctx context.Context) (map[string]Override, error) {
	now := s.clock()
	_ = s.reconcile(ctx, now)

	all, err := s.overrides.List(ctx)
	if err != nil {
		s.metrics.IncStoreError("list_overrides")
		return nil, persistenceErr("list overrides", err)
	}
	ws := WeekStart(now, s.loc)
	for id, o := range all {
		if o.SetAt.Before(ws) {
			delete(all, id)
		}
	}
	return all, nil
}

// Reconcile runs the weekly revert check at the service clock's now. It
// reports whether this call cleared the overrides.
func (s *Service) Reconcile(ctx context.Context) (bool, error) {
	return s.scheduler.Reconcile(ctx, s.clock())
}

func (s *Service) at(now time.Time) time.Time {
	if now.IsZero() {
		return s.clock()
	}
	return now
}

func (s *Service) reconcile(ctx context.Context, now time.Time) []string {
	if _, err := s.scheduler.Reconcile(ctx, now); err != nil {
		logger.From(ctx).Warn("revert check failed", "err", err)
		return []string{err.Error()}
	}
	return nil
}

func (s *Service) lookupRoom(ctx context.Context, roomID string) (Room, error) {
	rm, ok, err := s.rates.Room(ctx, roomID)
	if err != nil {
		s.metrics.IncStoreError("get_room")
		return Room{ID: roomID}, persistenceErr("get room rates", err)
	}
	if !ok {
		return Room{ID: roomID}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return rm, nil
}

func (s *Service) quote(ctx context.Context, room Room, now time.Time, warnings []string) PriceQuote {
	log := logger.From(ctx).With("room_id", room.ID)

	b := s.resolver.Resolve(room)
	if b.Warning != nil {
		s.metrics.IncBaselineFallback()
		log.Warn("baseline fallback", "default_nightly", b.Nightly)
		warnings = append(warnings, b.Warning.Error())
	}

	var q PriceQuote
	o, found, err := s.overrides.Get(ctx, room.ID)
	switch {
	case err != nil:
		s.metrics.IncStoreError("get_override")
		log.Warn("override lookup failed", "err", err)
		warnings = append(warnings, persistenceErr("get override", err).Error())
		q = s.calc.Quote(b.Nightly, now)
	case found && !o.SetAt.Before(WeekStart(now, s.loc)):
		q = overrideQuote(b.Nightly, o, now)
	default:
		q = s.calc.Quote(b.Nightly, now)
	}

	q.RoomID = room.ID
	q.BaselineSource = b.Source
	if len(warnings) > 0 {
		q.Warnings = warnings
	}
	s.metrics.IncQuote(q.Source)
	return q
}

func validateOverride(roomID string, price float64) error {
	if roomID == "" {
		return &ValidationError{Field: "room_id", Reason: "must not be empty"}
	}
	if !isFinite(price) {
		return &ValidationError{Field: "price", Reason: "must be a finite number"}
	}
	if price < 0 {
		return &ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	return nil
}
