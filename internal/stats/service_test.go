package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Wuchinator/story-analytics/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEventSource struct {
	events []*view.Event
	err    error
}

func (f *fakeEventSource) ListSince(ctx context.Context, since time.Time) ([]*view.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeSummaryRepo struct {
	mu   sync.Mutex
	rows []*Summary
	err  error
}

func (f *fakeSummaryRepo) Upsert(ctx context.Context, summary *Summary) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.rows = append(f.rows, summary)
	f.mu.Unlock()
	return nil
}

func (f *fakeSummaryRepo) GetByDateRange(ctx context.Context, from, to time.Time) ([]*Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func TestService_StoryStats_ZeroFilledOnStoreFailure(t *testing.T) {
	svc := NewService(
		&fakeEventSource{err: errors.New("store unreachable")},
		&fakeSummaryRepo{},
		[]string{"1-1", "1-2", "1-3"},
		zap.NewNop(),
	)

	stats := svc.StoryStats(context.Background())
	require.Len(t, stats, 3)

	for i, id := range []string{"1-1", "1-2", "1-3"} {
		assert.Equal(t, id, stats[i].StoryID)
		assert.Equal(t, int64(0), stats[i].TotalViews24h)
		assert.Equal(t, int64(0), stats[i].UniqueViewers24h)
		assert.Nil(t, stats[i].LastView)
	}
}

func TestService_GeneralStats_ZeroFilledOnStoreFailure(t *testing.T) {
	svc := NewService(
		&fakeEventSource{err: errors.New("store unreachable")},
		&fakeSummaryRepo{},
		[]string{"1-1"},
		zap.NewNop(),
	)

	general := svc.GeneralStats(context.Background())
	assert.Equal(t, int64(0), general.TotalViews)
	assert.Len(t, general.ViewsPerHour, 24)
}

func TestService_StoryStats_OrderedByConfiguration(t *testing.T) {
	now := time.Now().UTC()
	svc := NewService(
		&fakeEventSource{events: []*view.Event{
			event("1-2", "A", now.Add(-time.Hour)),
		}},
		&fakeSummaryRepo{},
		[]string{"1-1", "1-2"},
		zap.NewNop(),
	)

	stats := svc.StoryStats(context.Background())
	require.Len(t, stats, 2)
	assert.Equal(t, "1-1", stats[0].StoryID)
	assert.Equal(t, "1-2", stats[1].StoryID)
	assert.Equal(t, int64(1), stats[1].TotalViews24h)
}

func TestService_Summaries_DegradesToEmpty(t *testing.T) {
	svc := NewService(
		&fakeEventSource{},
		&fakeSummaryRepo{err: errors.New("store unreachable")},
		nil,
		zap.NewNop(),
	)

	now := time.Now().UTC()
	rows := svc.Summaries(context.Background(), now.Add(-Window), now)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestProcessor_FoldsViewsIntoSummaries(t *testing.T) {
	repo := &fakeSummaryRepo{}
	processor := NewProcessor(repo, zap.NewNop())

	viewedAt := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

	for _, viewer := range []string{"A", "B", "A"} {
		ev := event("1-1", viewer, viewedAt)
		require.NoError(t, processor.ProcessView(context.Background(), ev))
	}

	require.Len(t, repo.rows, 3)
	last := repo.rows[2]
	assert.Equal(t, "1-1", last.StoryID)
	assert.Equal(t, 9, last.Hour)
	assert.Equal(t, int64(1), last.TotalViews)
	// Два уникальных зрителя в бакете после трёх событий
	assert.Equal(t, int64(2), last.UniqueViewers)
}

// Консьюмер обрабатывает партиции параллельно, кеш должен это выдерживать.
func TestProcessor_ConcurrentProcessView(t *testing.T) {
	repo := &fakeSummaryRepo{}
	processor := NewProcessor(repo, zap.NewNop())

	viewedAt := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

	const workers = 4
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ev := event("1-1", fmt.Sprintf("viewer-%d-%d", w, i), viewedAt)
				assert.NoError(t, processor.ProcessView(context.Background(), ev))
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, repo.rows, workers*perWorker)
	processor.mu.Lock()
	unique := len(processor.uniqueViewers["2025-06-15-9-1-1"])
	processor.mu.Unlock()
	assert.Equal(t, workers*perWorker, unique)

	processor.CleanupOldCache()
	processor.mu.Lock()
	assert.Empty(t, processor.uniqueViewers)
	processor.mu.Unlock()
}
