package domain

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// CurrentActivity is the tracker's answer to "what is this user doing".
type CurrentActivity struct {
	Activity ActivityTag
	Online   bool
}

// Tracker maintains per-user presence: the selected activity tag, the
// online flag and the last-seen timestamp updated by heartbeat pings.
type Tracker struct {
	repo     ActivityRepository
	counters CounterRepository
	clock    quartz.Clock

	// presenceStaleAfter bounds how old lastSeen may be before Current
	// reports the user as offline, regardless of the stored flag.
	presenceStaleAfter time.Duration
}

// NewTracker constructs a Tracker. A nil clock falls back to the real one.
func NewTracker(repo ActivityRepository, counters CounterRepository, clock quartz.Clock, presenceStaleAfter time.Duration) *Tracker {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if presenceStaleAfter <= 0 {
		presenceStaleAfter = time.Minute
	}
	return &Tracker{
		repo:               repo,
		counters:           counters,
		clock:              clock,
		presenceStaleAfter: presenceStaleAfter,
	}
}

// SetActivity validates the tag, upserts presence, and records the change
// as a sample for the current minute.
func (t *Tracker) SetActivity(ctx context.Context, userID uuid.UUID, raw string) (ActivityTag, error) {
	tag, err := ParseTag(raw)
	if err != nil {
		return "", err
	}

	now := t.clock.Now().UTC()
	if err := t.repo.UpsertPresence(ctx, Presence{
		UserID:   userID,
		Activity: tag,
		Online:   true,
		LastSeen: now,
	}); err != nil {
		return "", err
	}

	if err := t.repo.UpsertSample(ctx, Sample{
		UserID:   userID,
		Minute:   MinuteOf(now),
		Activity: tag,
	}); err != nil {
		return "", err
	}

	return tag, nil
}

// Heartbeat refreshes lastSeen and flips the user online.
func (t *Tracker) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return t.repo.TouchPresence(ctx, userID, t.clock.Now().UTC())
}

// MarkOffline flips the online flag off. Clients call it best-effort on
// page unload; callers ignore failures.
func (t *Tracker) MarkOffline(ctx context.Context, userID uuid.UUID) error {
	return t.repo.SetPresenceOffline(ctx, userID)
}

// Current returns the latest activity tag, defaulting to working when no
// record exists. Online requires both the stored flag and a fresh lastSeen.
func (t *Tracker) Current(ctx context.Context, userID uuid.UUID) (CurrentActivity, error) {
	presence, err := t.repo.GetPresence(ctx, userID)
	if err != nil {
		return CurrentActivity{}, err
	}
	if presence == nil {
		return CurrentActivity{Activity: TagWorking, Online: false}, nil
	}

	online := presence.Online && t.clock.Now().UTC().Sub(presence.LastSeen) <= t.presenceStaleAfter
	return CurrentActivity{Activity: presence.Activity, Online: online}, nil
}

// ProductiveToday reports today's accrued working minutes.
func (t *Tracker) ProductiveToday(ctx context.Context, userID uuid.UUID) (int, error) {
	return t.counters.ProductiveMinutes(ctx, userID, DayOf(t.clock.Now()))
}

// AddWorkingMinute records the current minute as productive and returns the
// new daily total. It shares the dedup key with the scheduler, so a manual
// add and a scheduler tick in the same minute count once.
func (t *Tracker) AddWorkingMinute(ctx context.Context, userID uuid.UUID) (int, error) {
	return t.counters.RecordWorkingMinute(ctx, userID, MinuteOf(t.clock.Now()))
}
