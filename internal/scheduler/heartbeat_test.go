package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

func TestHeartbeatAccruesOnlineUsers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	mClock := quartz.NewMock(t)
	mClock.Set(start)

	trap := mClock.Trap().TickerFunc("heartbeat")
	defer trap.Close()

	working := uuid.New()
	sleeping := uuid.New()
	store := newFakeStore()
	store.setPresence(domain.Presence{UserID: working, Activity: domain.TagWorking, Online: true, LastSeen: start})
	store.setPresence(domain.Presence{UserID: sleeping, Activity: domain.TagSleeping, Online: true, LastSeen: start})

	h := New(store, mClock, time.Minute, 2*time.Minute)
	h.Start(ctx)
	call, err := trap.Wait(ctx)
	require.NoError(t, err)
	call.Release()

	mClock.Advance(time.Minute).MustWait(ctx)

	minute := domain.MinuteOf(start.Add(time.Minute))
	require.Equal(t, domain.TagWorking, store.sampleAt(working, minute))
	require.Equal(t, domain.TagSleeping, store.sampleAt(sleeping, minute))
	require.Equal(t, 1, store.hourly(working, 9, domain.TagWorking))
	require.Equal(t, 1, store.hourly(sleeping, 9, domain.TagSleeping))

	// Only the working tag accrues productive time.
	require.Equal(t, 1, store.workingMinutes(working))
	require.Equal(t, 0, store.workingMinutes(sleeping))
}

func TestHeartbeatSkipsStalePresence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	mClock := quartz.NewMock(t)
	mClock.Set(start)

	trap := mClock.Trap().TickerFunc("heartbeat")
	defer trap.Close()

	stale := uuid.New()
	store := newFakeStore()
	store.setPresence(domain.Presence{UserID: stale, Activity: domain.TagWorking, Online: true, LastSeen: start.Add(-3 * time.Minute)})

	h := New(store, mClock, time.Minute, 2*time.Minute)
	h.Start(ctx)
	call, err := trap.Wait(ctx)
	require.NoError(t, err)
	call.Release()

	mClock.Advance(time.Minute).MustWait(ctx)

	require.Equal(t, 0, store.sampleCount(stale))
	require.Equal(t, 0, store.workingMinutes(stale))

	// The flag is untouched so a late heartbeat resumes accrual.
	require.True(t, store.presence(stale).Online)
}

func TestHeartbeatIsolatesPerUserFailures(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)
	mClock := quartz.NewMock(t)
	mClock.Set(start)

	trap := mClock.Trap().TickerFunc("heartbeat")
	defer trap.Close()

	broken := uuid.New()
	healthy := uuid.New()
	store := newFakeStore()
	store.setPresence(domain.Presence{UserID: broken, Activity: domain.TagWorking, Online: true, LastSeen: start})
	store.setPresence(domain.Presence{UserID: healthy, Activity: domain.TagLearning, Online: true, LastSeen: start})
	store.failFor = broken

	h := New(store, mClock, time.Minute, 2*time.Minute)
	h.Start(ctx)
	call, err := trap.Wait(ctx)
	require.NoError(t, err)
	call.Release()

	mClock.Advance(time.Minute).MustWait(ctx)

	require.Equal(t, 0, store.sampleCount(broken))
	require.Equal(t, 1, store.sampleCount(healthy))
}

type sampleKey struct {
	user   uuid.UUID
	minute time.Time
}

type hourlyKey struct {
	user uuid.UUID
	hour int
	tag  domain.ActivityTag
}

type fakeStore struct {
	mu        sync.Mutex
	presences map[uuid.UUID]domain.Presence
	samples   map[sampleKey]domain.ActivityTag
	buckets   map[hourlyKey]int
	minutes   map[sampleKey]struct{}
	failFor   uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		presences: make(map[uuid.UUID]domain.Presence),
		samples:   make(map[sampleKey]domain.ActivityTag),
		buckets:   make(map[hourlyKey]int),
		minutes:   make(map[sampleKey]struct{}),
	}
}

func (f *fakeStore) setPresence(p domain.Presence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presences[p.UserID] = p
}

func (f *fakeStore) presence(userID uuid.UUID) domain.Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presences[userID]
}

func (f *fakeStore) sampleAt(userID uuid.UUID, minute time.Time) domain.ActivityTag {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples[sampleKey{userID, minute}]
}

func (f *fakeStore) sampleCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.samples {
		if key.user == userID {
			n++
		}
	}
	return n
}

func (f *fakeStore) hourly(userID uuid.UUID, hour int, tag domain.ActivityTag) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[hourlyKey{userID, hour, tag}]
}

func (f *fakeStore) workingMinutes(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.minutes {
		if key.user == userID {
			n++
		}
	}
	return n
}

func (f *fakeStore) OnlinePresences(ctx context.Context) ([]domain.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Presence, 0, len(f.presences))
	for _, p := range f.presences {
		if p.Online {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertSample(ctx context.Context, sample domain.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sample.UserID == f.failFor {
		return errors.New("write refused")
	}
	f.samples[sampleKey{sample.UserID, sample.Minute}] = sample.Activity
	return nil
}

func (f *fakeStore) IncrementHourlyBucket(ctx context.Context, userID uuid.UUID, day time.Time, hour int, tag domain.ActivityTag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[hourlyKey{userID, hour, tag}]++
	return nil
}

func (f *fakeStore) RecordWorkingMinute(ctx context.Context, userID uuid.UUID, minute time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minutes[sampleKey{userID, minute}] = struct{}{}
	n := 0
	for key := range f.minutes {
		if key.user == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) PruneSamples(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pruned int64
	for key := range f.samples {
		if key.minute.Before(before) {
			delete(f.samples, key)
			pruned++
		}
	}
	return pruned, nil
}
