package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/Wuchinator/story-analytics/internal/view"
)

// ComputeStoryStats rolls raw view events into per-story counters over the
// trailing window ending at now. The result carries an entry for every
// requested story id, zero-filled when nothing matched. Pure and total:
// malformed rows are an upstream concern.
func ComputeStoryStats(events []*view.Event, storyIDs []string, now time.Time) map[string]StoryStats {
	cutoff := now.Add(-Window)

	type bucket struct {
		viewers  map[string]struct{}
		total    int64
		lastView time.Time
	}

	buckets := make(map[string]*bucket, len(storyIDs))
	for _, id := range storyIDs {
		buckets[id] = &bucket{viewers: make(map[string]struct{})}
	}

	for _, ev := range events {
		if ev.ViewedAt.Before(cutoff) || ev.ViewedAt.After(now) {
			continue
		}
		b, tracked := buckets[ev.StoryID]
		if !tracked {
			continue
		}
		b.viewers[ev.ViewerID] = struct{}{}
		b.total++
		if ev.ViewedAt.After(b.lastView) {
			b.lastView = ev.ViewedAt
		}
	}

	result := make(map[string]StoryStats, len(storyIDs))
	for _, id := range storyIDs {
		b := buckets[id]
		s := StoryStats{
			StoryID:          id,
			UniqueViewers24h: int64(len(b.viewers)),
			TotalViews24h:    b.total,
		}
		if !b.lastView.IsZero() {
			last := b.lastView
			s.LastView = &last
		}
		result[id] = s
	}

	return result
}

// ComputeGeneralStats derives global metrics over the trailing window:
// totals, distinct viewers, an hour-of-day histogram (always 24 buckets),
// the share of viewers who saw more than one distinct story, and average
// views per viewer. Rates are rounded to one decimal and are 0 with no
// viewers.
func ComputeGeneralStats(events []*view.Event, now time.Time) GeneralStats {
	cutoff := now.Add(-Window)

	hourCounts := make(map[int]int64, 24)
	viewerStories := make(map[string]map[string]struct{})
	var total int64

	for _, ev := range events {
		if ev.ViewedAt.Before(cutoff) || ev.ViewedAt.After(now) {
			continue
		}
		total++
		hourCounts[ev.ViewedAt.Hour()]++

		stories, ok := viewerStories[ev.ViewerID]
		if !ok {
			stories = make(map[string]struct{})
			viewerStories[ev.ViewerID] = stories
		}
		stories[ev.StoryID] = struct{}{}
	}

	perHour := make([]HourBucket, 0, 24)
	for h := 0; h < 24; h++ {
		perHour = append(perHour, HourBucket{
			Hour:  fmt.Sprintf("%02d:00", h),
			Count: hourCounts[h],
		})
	}

	uniqueViewers := int64(len(viewerStories))

	var multiStory int64
	for _, stories := range viewerStories {
		if len(stories) > 1 {
			multiStory++
		}
	}

	var retention, avgViews float64
	if uniqueViewers > 0 {
		retention = round1(float64(multiStory) / float64(uniqueViewers) * 100)
		avgViews = round1(float64(total) / float64(uniqueViewers))
	}

	return GeneralStats{
		TotalViews:      total,
		UniqueViewers:   uniqueViewers,
		ViewsPerHour:    perHour,
		RetentionRate:   retention,
		AvgViewsPerUser: avgViews,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
