package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// MinutesPerDay is the length of every reconstructed timeline.
const MinutesPerDay = 24 * 60

// Interval is a contiguous span of one activity, boundaries as zero-padded HH:MM.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IntervalGroup labels a run of identical minutes. A tag that recurs later
// in the day appears again as its own group; runs are never merged across
// other activities.
type IntervalGroup struct {
	Activity  ActivityTag `json:"activity"`
	Intervals []Interval  `json:"intervals"`
}

// BuildTimeline reconstructs a dense 1440-minute timeline for the day
// starting at dayStart from sparse change samples, carrying the last known
// activity forward. Samples must be sorted by minute ascending. The seed is
// the activity in effect at midnight.
func BuildTimeline(dayStart time.Time, seed ActivityTag, samples []Sample) []ActivityTag {
	timeline := make([]ActivityTag, MinutesPerDay)
	last := seed
	if last == "" {
		last = TagOthers
	}

	i := 0
	for minute := 0; minute < MinutesPerDay; minute++ {
		boundary := dayStart.Add(time.Duration(minute) * time.Minute)
		for i < len(samples) && !samples[i].Minute.After(boundary) {
			last = samples[i].Activity
			i++
		}
		timeline[minute] = last
	}
	return timeline
}

// CompressTimeline converts a dense timeline into ordered interval groups.
// A new group starts whenever the activity changes; the final group always
// ends at 23:59. Output spans the full day with no gaps or overlaps.
func CompressTimeline(timeline []ActivityTag) []IntervalGroup {
	if len(timeline) == 0 {
		return nil
	}

	groups := make([]IntervalGroup, 0, 8)
	runStart := 0
	for minute := 1; minute <= len(timeline); minute++ {
		if minute < len(timeline) && timeline[minute] == timeline[runStart] {
			continue
		}

		end := formatMinute(minute)
		if minute == len(timeline) {
			end = formatMinute(len(timeline) - 1)
		}
		groups = append(groups, IntervalGroup{
			Activity: timeline[runStart],
			Intervals: []Interval{
				{Start: formatMinute(runStart), End: end},
			},
		})
		runStart = minute
	}
	return groups
}

func formatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Summaries builds daily and hourly activity summaries.
type Summaries struct {
	repo         ActivityRepository
	counters     CounterRepository
	cache        TimelineCache
	clock        quartz.Clock
	cacheEnabled bool
}

// NewSummaries constructs a Summaries service. A nil clock falls back to the
// real one; a nil cache disables caching.
func NewSummaries(repo ActivityRepository, counters CounterRepository, cache TimelineCache, clock quartz.Clock, cacheEnabled bool) *Summaries {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Summaries{
		repo:         repo,
		counters:     counters,
		cache:        cache,
		clock:        clock,
		cacheEnabled: cacheEnabled && cache != nil,
	}
}

// Daily returns the compressed interval summary for the given calendar day.
// Dense timelines for completed days are cached; compression is recomputed
// on every read.
func (s *Summaries) Daily(ctx context.Context, userID uuid.UUID, day time.Time) ([]IntervalGroup, error) {
	dayStart := DayOf(day)

	// Today's timeline is still accruing, so only finished days are cached.
	cacheable := s.cacheEnabled && dayStart.Before(DayOf(s.clock.Now()))
	if cacheable {
		timeline, err := s.cache.GetTimeline(ctx, userID, dayStart)
		if err != nil {
			return nil, err
		}
		if len(timeline) == MinutesPerDay {
			return CompressTimeline(timeline), nil
		}
	}

	samples, err := s.repo.SamplesForRange(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	seed := TagOthers
	if prior, err := s.repo.LastSampleBefore(ctx, userID, dayStart); err != nil {
		return nil, err
	} else if prior != nil {
		seed = prior.Activity
	}

	timeline := BuildTimeline(dayStart, seed, samples)
	if cacheable {
		// A cache write failure never fails the read.
		_ = s.cache.PutTimeline(ctx, userID, dayStart, timeline)
	}
	return CompressTimeline(timeline), nil
}

// Hourly returns per-hour accrued minutes by activity for the given day.
func (s *Summaries) Hourly(ctx context.Context, userID uuid.UUID, day time.Time) ([]HourlyCount, error) {
	return s.counters.HourlyBuckets(ctx, userID, DayOf(day))
}
