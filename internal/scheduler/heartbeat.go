// Package scheduler runs the minute-tick heartbeat job that accrues
// activity time for online users.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
	"github.com/AkremHaddad/Productivy-sub000/internal/observability"
)

// Store exposes the persistence operations the heartbeat needs.
type Store interface {
	OnlinePresences(ctx context.Context) ([]domain.Presence, error)
	UpsertSample(ctx context.Context, sample domain.Sample) error
	IncrementHourlyBucket(ctx context.Context, userID uuid.UUID, day time.Time, hour int, tag domain.ActivityTag) error
	RecordWorkingMinute(ctx context.Context, userID uuid.UUID, minute time.Time) (int, error)
	PruneSamples(ctx context.Context, before time.Time) (int64, error)
}

// Option configures optional behaviour for the Heartbeat.
type Option func(*Heartbeat)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(h *Heartbeat) {
		h.logger = logger
	}
}

// WithRetention enables pruning of samples older than the given duration.
func WithRetention(retention time.Duration) Option {
	return func(h *Heartbeat) {
		h.retention = retention
	}
}

// Heartbeat is the single global minute ticker. Each tick scans online
// users, skips stale ones, and records one minute of activity for the rest.
// A failure for one user never aborts the batch, and a failed tick is only
// logged; the next tick self-heals.
type Heartbeat struct {
	store      Store
	clock      quartz.Clock
	interval   time.Duration
	staleAfter time.Duration
	retention  time.Duration
	logger     *log.Logger
	waiter     quartz.Waiter
}

// New constructs a Heartbeat. A nil clock falls back to the real one.
func New(store Store, clock quartz.Clock, interval, staleAfter time.Duration, opts ...Option) *Heartbeat {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	h := &Heartbeat{
		store:      store,
		clock:      clock,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     log.New(log.Writer(), "[scheduler] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start launches the ticker loop. Tick errors are logged, never fatal.
func (h *Heartbeat) Start(ctx context.Context) {
	h.waiter = h.clock.TickerFunc(ctx, h.interval, func() error {
		if err := h.runTick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Printf("tick error: %v", err)
		}
		return nil
	}, "heartbeat")
}

// Wait blocks until the ticker stops (context cancellation).
func (h *Heartbeat) Wait() error {
	if h.waiter == nil {
		return nil
	}
	err := h.waiter.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (h *Heartbeat) runTick(ctx context.Context) error {
	now := h.clock.Now().UTC()
	minute := domain.MinuteOf(now)

	presences, err := h.store.OnlinePresences(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, presence := range presences {
		if now.Sub(presence.LastSeen) > h.staleAfter {
			// Effectively offline; the flag is left alone so a late
			// heartbeat resumes accrual without a state transition.
			usersSkippedCounter.Inc()
			continue
		}

		if err := h.accrue(ctx, presence, minute); err != nil {
			errs = errors.Join(errs, fmt.Errorf("user %s: %w", presence.UserID, err))
			userErrorCounter.Inc()
			continue
		}
		usersProcessedCounter.Inc()
	}

	ticksCounter.Inc()
	observability.RecordTick(now)

	if h.retention > 0 && minute.Minute() == 0 {
		pruned, err := h.store.PruneSamples(ctx, now.Add(-h.retention))
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("prune samples: %w", err))
		} else if pruned > 0 {
			samplesPrunedCounter.Add(float64(pruned))
			h.logger.Printf("pruned %d expired samples", pruned)
		}
	}

	return errs
}

func (h *Heartbeat) accrue(ctx context.Context, presence domain.Presence, minute time.Time) error {
	if err := h.store.UpsertSample(ctx, domain.Sample{
		UserID:   presence.UserID,
		Minute:   minute,
		Activity: presence.Activity,
	}); err != nil {
		return err
	}

	day := domain.DayOf(minute)
	if err := h.store.IncrementHourlyBucket(ctx, presence.UserID, day, minute.Hour(), presence.Activity); err != nil {
		return err
	}

	if presence.Activity == domain.TagWorking {
		if _, err := h.store.RecordWorkingMinute(ctx, presence.UserID, minute); err != nil {
			return err
		}
	}
	return nil
}
