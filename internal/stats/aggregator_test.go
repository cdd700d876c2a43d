package stats

import (
	"testing"
	"time"

	"github.com/Wuchinator/story-analytics/internal/view"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(storyID, viewerID string, viewedAt time.Time) *view.Event {
	return &view.Event{
		ID:       uuid.New(),
		StoryID:  storyID,
		ViewerID: viewerID,
		ViewedAt: viewedAt,
	}
}

func TestComputeStoryStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	events := []*view.Event{
		event("1-1", "A", now.Add(-1*time.Hour)),
		event("1-1", "B", now.Add(-2*time.Hour)),
		event("1-2", "A", now.Add(-3*time.Hour)),
	}

	result := ComputeStoryStats(events, []string{"1-1", "1-2", "1-3"}, now)
	require.Len(t, result, 3)

	assert.Equal(t, int64(2), result["1-1"].UniqueViewers24h)
	assert.Equal(t, int64(2), result["1-1"].TotalViews24h)
	require.NotNil(t, result["1-1"].LastView)
	assert.Equal(t, now.Add(-1*time.Hour), *result["1-1"].LastView)

	assert.Equal(t, int64(1), result["1-2"].UniqueViewers24h)
	assert.Equal(t, int64(1), result["1-2"].TotalViews24h)

	assert.Equal(t, int64(0), result["1-3"].UniqueViewers24h)
	assert.Equal(t, int64(0), result["1-3"].TotalViews24h)
	assert.Nil(t, result["1-3"].LastView)
}

func TestComputeStoryStats_WindowBoundary(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	events := []*view.Event{
		event("1-1", "A", now.Add(-Window)),                  // ровно на границе - входит
		event("1-1", "B", now.Add(-Window-time.Millisecond)), // за границей - нет
		event("1-1", "C", now.Add(time.Minute)),              // будущее окно - нет
	}

	result := ComputeStoryStats(events, []string{"1-1"}, now)

	assert.Equal(t, int64(1), result["1-1"].TotalViews24h)
	assert.Equal(t, int64(1), result["1-1"].UniqueViewers24h)
}

func TestComputeStoryStats_UniqueNeverExceedsTotal(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	viewers := []string{"A", "B", "C", "A", "B", "A"}
	events := make([]*view.Event, 0, len(viewers))
	for i, v := range viewers {
		events = append(events, event("2-1", v, now.Add(-time.Duration(i)*time.Minute)))
	}

	result := ComputeStoryStats(events, []string{"2-1"}, now)

	assert.Equal(t, int64(6), result["2-1"].TotalViews24h)
	assert.Equal(t, int64(3), result["2-1"].UniqueViewers24h)
	assert.LessOrEqual(t, result["2-1"].UniqueViewers24h, result["2-1"].TotalViews24h)
}

func TestComputeGeneralStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	events := []*view.Event{
		event("1-1", "A", now.Add(-1*time.Hour)),
		event("1-1", "B", now.Add(-2*time.Hour)),
		event("1-2", "A", now.Add(-3*time.Hour)),
	}

	result := ComputeGeneralStats(events, now)

	assert.Equal(t, int64(3), result.TotalViews)
	assert.Equal(t, int64(2), result.UniqueViewers)
	// Зритель A видел 2 разных story из 2 зрителей
	assert.Equal(t, 50.0, result.RetentionRate)
	assert.Equal(t, 1.5, result.AvgViewsPerUser)

	require.Len(t, result.ViewsPerHour, 24)
	var sum int64
	for i, bucket := range result.ViewsPerHour {
		assert.Equal(t, hourLabel(i), bucket.Hour)
		sum += bucket.Count
	}
	assert.Equal(t, int64(3), sum)

	assert.Equal(t, int64(1), result.ViewsPerHour[11].Count) // 11:00
	assert.Equal(t, int64(1), result.ViewsPerHour[10].Count)
	assert.Equal(t, int64(1), result.ViewsPerHour[9].Count)
}

func TestComputeGeneralStats_Empty(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	result := ComputeGeneralStats(nil, now)

	assert.Equal(t, int64(0), result.TotalViews)
	assert.Equal(t, int64(0), result.UniqueViewers)
	assert.Equal(t, 0.0, result.RetentionRate)
	assert.Equal(t, 0.0, result.AvgViewsPerUser)

	require.Len(t, result.ViewsPerHour, 24)
	for _, bucket := range result.ViewsPerHour {
		assert.Equal(t, int64(0), bucket.Count)
	}
	assert.Equal(t, "00:00", result.ViewsPerHour[0].Hour)
	assert.Equal(t, "23:00", result.ViewsPerHour[23].Hour)
}

func TestComputeGeneralStats_Rounding(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// 3 зрителя, один видел 2 story: retention 1/3 → 33.3
	events := []*view.Event{
		event("1-1", "A", now.Add(-1*time.Hour)),
		event("1-2", "A", now.Add(-1*time.Hour)),
		event("1-1", "B", now.Add(-1*time.Hour)),
		event("1-1", "C", now.Add(-1*time.Hour)),
	}

	result := ComputeGeneralStats(events, now)

	assert.Equal(t, 33.3, result.RetentionRate)
	assert.Equal(t, 1.3, result.AvgViewsPerUser) // 4/3 → 1.3
}

func hourLabel(h int) string {
	labels := [...]string{
		"00:00", "01:00", "02:00", "03:00", "04:00", "05:00",
		"06:00", "07:00", "08:00", "09:00", "10:00", "11:00",
		"12:00", "13:00", "14:00", "15:00", "16:00", "17:00",
		"18:00", "19:00", "20:00", "21:00", "22:00", "23:00",
	}
	return labels[h]
}
