// Package postgres provides pgx-backed persistence for the Productivy
// backend. Counter updates use the database's atomic upserts as the sole
// concurrency-control primitive, so interleaved writers never lose updates.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
	"github.com/AkremHaddad/Productivy-sub000/internal/observability"
)

// Repository provides Postgres-backed persistence for every store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateUser inserts a new account.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (user_id, email, name, password_hash, created_at)
        VALUES ($1,$2,$3,$4,$5)`

	_, err := r.pool.Exec(ctx, stmt, user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

// UserByEmail fetches an account by email, nil when absent.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT user_id, email, name, password_hash, created_at
        FROM users WHERE email=$1`

	var user domain.User
	row := r.pool.QueryRow(ctx, query, email)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpsertPresence replaces the user's presence row.
func (r *Repository) UpsertPresence(ctx context.Context, presence domain.Presence) error {
	const stmt = `INSERT INTO presence (user_id, activity, online, last_seen)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id) DO UPDATE SET activity=EXCLUDED.activity, online=EXCLUDED.online, last_seen=EXCLUDED.last_seen`

	_, err := r.pool.Exec(ctx, stmt, presence.UserID, presence.Activity, presence.Online, presence.LastSeen)
	return err
}

// TouchPresence refreshes lastSeen and flips the user online, creating the
// row with the default activity when the user has never selected one.
func (r *Repository) TouchPresence(ctx context.Context, userID uuid.UUID, seenAt time.Time) error {
	const stmt = `INSERT INTO presence (user_id, activity, online, last_seen)
        VALUES ($1,$2,TRUE,$3)
        ON CONFLICT (user_id) DO UPDATE SET online=TRUE, last_seen=EXCLUDED.last_seen`

	_, err := r.pool.Exec(ctx, stmt, userID, domain.TagWorking, seenAt)
	return err
}

// SetPresenceOffline flips the online flag off. A missing row is not an error.
func (r *Repository) SetPresenceOffline(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE presence SET online=FALSE WHERE user_id=$1`, userID)
	return err
}

// GetPresence fetches the user's presence row, nil when absent.
func (r *Repository) GetPresence(ctx context.Context, userID uuid.UUID) (*domain.Presence, error) {
	const query = `SELECT user_id, activity, online, last_seen FROM presence WHERE user_id=$1`

	var presence domain.Presence
	row := r.pool.QueryRow(ctx, query, userID)
	if err := row.Scan(&presence.UserID, &presence.Activity, &presence.Online, &presence.LastSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &presence, nil
}

// OnlinePresences returns every presence row currently flagged online.
func (r *Repository) OnlinePresences(ctx context.Context) ([]domain.Presence, error) {
	const query = `SELECT user_id, activity, online, last_seen FROM presence WHERE online ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presences := make([]domain.Presence, 0)
	for rows.Next() {
		var presence domain.Presence
		if err := rows.Scan(&presence.UserID, &presence.Activity, &presence.Online, &presence.LastSeen); err != nil {
			return nil, err
		}
		presences = append(presences, presence)
	}
	return presences, rows.Err()
}

// UpsertSample writes the per-minute sample; the last write for a minute wins.
func (r *Repository) UpsertSample(ctx context.Context, sample domain.Sample) error {
	const stmt = `INSERT INTO activity_samples (user_id, minute_ts, activity)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, minute_ts) DO UPDATE SET activity=EXCLUDED.activity`

	_, err := r.pool.Exec(ctx, stmt, sample.UserID, sample.Minute, sample.Activity)
	return err
}

// SamplesForRange returns samples with from <= minute < to, ascending.
func (r *Repository) SamplesForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Sample, error) {
	const query = `SELECT user_id, minute_ts, activity FROM activity_samples
        WHERE user_id=$1 AND minute_ts >= $2 AND minute_ts < $3
        ORDER BY minute_ts`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]domain.Sample, 0)
	for rows.Next() {
		var sample domain.Sample
		if err := rows.Scan(&sample.UserID, &sample.Minute, &sample.Activity); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// LastSampleBefore returns the most recent sample strictly before the given
// instant, nil when none exists.
func (r *Repository) LastSampleBefore(ctx context.Context, userID uuid.UUID, before time.Time) (*domain.Sample, error) {
	const query = `SELECT user_id, minute_ts, activity FROM activity_samples
        WHERE user_id=$1 AND minute_ts < $2
        ORDER BY minute_ts DESC LIMIT 1`

	var sample domain.Sample
	row := r.pool.QueryRow(ctx, query, userID, before)
	if err := row.Scan(&sample.UserID, &sample.Minute, &sample.Activity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

// PruneSamples deletes samples older than the cutoff across all users and
// returns the number removed.
func (r *Repository) PruneSamples(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_samples WHERE minute_ts < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementHourlyBucket adds one minute to the (user, day, hour, activity) bucket.
func (r *Repository) IncrementHourlyBucket(ctx context.Context, userID uuid.UUID, day time.Time, hour int, tag domain.ActivityTag) error {
	const stmt = `INSERT INTO hourly_activity (user_id, day, hour, activity, minutes)
        VALUES ($1,$2,$3,$4,1)
        ON CONFLICT (user_id, day, hour, activity) DO UPDATE SET minutes = hourly_activity.minutes + 1`

	_, err := r.pool.Exec(ctx, stmt, userID, day, hour, tag)
	return err
}

// HourlyBuckets returns the day's accrued minutes grouped by hour and activity.
func (r *Repository) HourlyBuckets(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.HourlyCount, error) {
	const query = `SELECT hour, activity, minutes FROM hourly_activity
        WHERE user_id=$1 AND day=$2
        ORDER BY hour, activity`

	rows, err := r.pool.Query(ctx, query, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]domain.HourlyCount, 0)
	for rows.Next() {
		var count domain.HourlyCount
		if err := rows.Scan(&count.Hour, &count.Activity, &count.Minutes); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

// RecordWorkingMinute records a productive minute keyed on (user, minute)
// and returns the day's total. The dedup insert and the counter increment
// share a transaction, so the counter moves exactly once per distinct minute
// no matter how many callers race on it.
func (r *Repository) RecordWorkingMinute(ctx context.Context, userID uuid.UUID, minute time.Time) (int, error) {
	day := domain.DayOf(minute)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `INSERT INTO working_minutes (user_id, minute_ts) VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, minute)
	if err != nil {
		return 0, err
	}

	var total int
	if tag.RowsAffected() == 0 {
		row := tx.QueryRow(ctx, `SELECT COALESCE((SELECT minutes FROM productive_time WHERE user_id=$1 AND day=$2), 0)`, userID, day)
		if err := row.Scan(&total); err != nil {
			return 0, err
		}
		return total, tx.Commit(ctx)
	}

	const stmt = `INSERT INTO productive_time (user_id, day, minutes)
        VALUES ($1,$2,1)
        ON CONFLICT (user_id, day) DO UPDATE SET minutes = productive_time.minutes + 1
        RETURNING minutes`

	if err := tx.QueryRow(ctx, stmt, userID, day).Scan(&total); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	observability.RecordWorkingMinute(minute)
	return total, nil
}

// ProductiveMinutes returns the day's total, zero when no counter exists yet.
func (r *Repository) ProductiveMinutes(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	const query = `SELECT COALESCE((SELECT minutes FROM productive_time WHERE user_id=$1 AND day=$2), 0)`

	var total int
	if err := r.pool.QueryRow(ctx, query, userID, day).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// GetTimeline fetches a cached dense timeline, nil when absent.
func (r *Repository) GetTimeline(ctx context.Context, userID uuid.UUID, day time.Time) ([]domain.ActivityTag, error) {
	const query = `SELECT timeline FROM daily_timelines WHERE user_id=$1 AND day=$2`

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, userID, day).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var timeline []domain.ActivityTag
	if err := json.Unmarshal(raw, &timeline); err != nil {
		return nil, err
	}
	return timeline, nil
}

// PutTimeline stores a dense timeline for a completed day.
func (r *Repository) PutTimeline(ctx context.Context, userID uuid.UUID, day time.Time, timeline []domain.ActivityTag) error {
	raw, err := json.Marshal(timeline)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO daily_timelines (user_id, day, timeline, built_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (user_id, day) DO UPDATE SET timeline=EXCLUDED.timeline, built_at=NOW()`

	if _, err := r.pool.Exec(ctx, stmt, userID, day, raw); err != nil {
		return err
	}
	observability.RecordTimelineCached(day)
	return nil
}
