// Package domain defines the business logic for the Productivy backend.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record cannot be located or is not
	// owned by the caller. Handlers translate it to 404 in both cases so
	// existence of other users' records is never revealed.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned for a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownTag is returned for a tag outside the fixed enumeration.
	ErrUnknownTag = errors.New("unknown activity tag")
	// ErrUnknownStatus is returned for a task status outside todo/doing/done.
	ErrUnknownStatus = errors.New("unknown task status")
)

// ActivityTag describes what a user is currently doing.
type ActivityTag string

const (
	TagWorking     ActivityTag = "working"
	TagLearning    ActivityTag = "learning"
	TagSleeping    ActivityTag = "sleeping"
	TagTraining    ActivityTag = "training"
	TagPlaying     ActivityTag = "playing"
	TagSocializing ActivityTag = "socializing"
	TagHobbying    ActivityTag = "hobbying"
	TagOthers      ActivityTag = "others"
)

// Tags lists every valid activity tag.
var Tags = []ActivityTag{
	TagWorking,
	TagLearning,
	TagSleeping,
	TagTraining,
	TagPlaying,
	TagSocializing,
	TagHobbying,
	TagOthers,
}

// ParseTag validates a raw tag value against the fixed enumeration.
func ParseTag(raw string) (ActivityTag, error) {
	tag := ActivityTag(raw)
	for _, known := range Tags {
		if tag == known {
			return tag, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownTag, raw)
}

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Presence holds the latest selected activity and liveness state for a user.
// Exactly one row exists per user.
type Presence struct {
	UserID   uuid.UUID
	Activity ActivityTag
	Online   bool
	LastSeen time.Time
}

// Sample is a per-minute activity record. At most one exists per
// (user, minute); later writes for the same minute overwrite.
type Sample struct {
	UserID   uuid.UUID
	Minute   time.Time
	Activity ActivityTag
}

// HourlyCount reports accrued minutes for one activity within one hour.
type HourlyCount struct {
	Hour     int
	Activity ActivityTag
	Minutes  int
}

// MinuteOf truncates a timestamp to its minute in UTC, the key used for
// samples and working-minute dedup.
func MinuteOf(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// DayOf truncates a timestamp to UTC midnight.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// UserRepository captures account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
}

// ActivityRepository captures presence and sample persistence.
type ActivityRepository interface {
	UpsertPresence(ctx context.Context, presence Presence) error
	TouchPresence(ctx context.Context, userID uuid.UUID, seenAt time.Time) error
	SetPresenceOffline(ctx context.Context, userID uuid.UUID) error
	GetPresence(ctx context.Context, userID uuid.UUID) (*Presence, error)

	UpsertSample(ctx context.Context, sample Sample) error
	SamplesForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Sample, error)
	LastSampleBefore(ctx context.Context, userID uuid.UUID, before time.Time) (*Sample, error)
	PruneSamples(ctx context.Context, before time.Time) (int64, error)
}

// CounterRepository captures the accrual counters maintained by the
// heartbeat scheduler. Increments rely on the database's atomic upsert
// so concurrent callers never lose updates.
type CounterRepository interface {
	OnlinePresences(ctx context.Context) ([]Presence, error)
	IncrementHourlyBucket(ctx context.Context, userID uuid.UUID, day time.Time, hour int, tag ActivityTag) error
	HourlyBuckets(ctx context.Context, userID uuid.UUID, day time.Time) ([]HourlyCount, error)

	// RecordWorkingMinute records a productive minute keyed by (user,
	// minute) and returns the day's total. Recording the same minute
	// twice leaves the total unchanged.
	RecordWorkingMinute(ctx context.Context, userID uuid.UUID, minute time.Time) (int, error)
	ProductiveMinutes(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)
}

// TimelineCache stores dense per-minute timelines for completed days.
type TimelineCache interface {
	GetTimeline(ctx context.Context, userID uuid.UUID, day time.Time) ([]ActivityTag, error)
	PutTimeline(ctx context.Context, userID uuid.UUID, day time.Time, timeline []ActivityTag) error
}
