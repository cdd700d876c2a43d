package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Wuchinator/story-analytics/internal/view"
	"go.uber.org/zap"
)

// Processor folds accepted view events from Kafka into the pre-aggregated
// story_view_summary table. Adapted from the hourly event summary consumer.
type Processor struct {
	repo   SummaryRepository
	logger *zap.Logger

	// In-memory кеш уникальных зрителей по бакету (date-hour-story).
	// Консьюмер обрабатывает каждую партицию в своей горутине
	mu            sync.Mutex
	uniqueViewers map[string]map[string]bool
}

func NewProcessor(repo SummaryRepository, logger *zap.Logger) *Processor {
	return &Processor{
		repo:          repo,
		logger:        logger,
		uniqueViewers: make(map[string]map[string]bool),
	}
}

func (p *Processor) ProcessView(ctx context.Context, ev *view.Event) error {
	date := ev.ViewedAt.Truncate(24 * time.Hour)
	hour := ev.ViewedAt.Hour()

	key := fmt.Sprintf("%s-%d-%s", date.Format("2006-01-02"), hour, ev.StoryID)

	p.mu.Lock()
	if p.uniqueViewers[key] == nil {
		p.uniqueViewers[key] = make(map[string]bool)
	}
	p.uniqueViewers[key][ev.ViewerID] = true
	unique := int64(len(p.uniqueViewers[key]))
	p.mu.Unlock()

	summary := NewSummary(ev.StoryID, date, hour)
	summary.TotalViews = 1
	summary.UniqueViewers = unique

	if err := p.repo.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	p.logger.Debug("View folded into summary",
		zap.String("view_id", ev.ID.String()),
		zap.String("story_id", ev.StoryID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("hour", hour),
	)

	return nil
}

// CreateMessageHandler adapts the processor to the Kafka consumer callback.
func (p *Processor) CreateMessageHandler() func(ctx context.Context, key, value []byte) error {
	return func(ctx context.Context, key, value []byte) error {
		var ev view.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			p.logger.Error("Failed to unmarshal view event",
				zap.Error(err),
				zap.String("value", string(value)),
			)
			return err
		}

		return p.ProcessView(ctx, &ev)
	}
}

// CleanupOldCache drops unique-viewer sets older than the stats window.
func (p *Processor) CleanupOldCache() {
	cutoff := time.Now().Add(-Window).Format("2006-01-02")

	p.mu.Lock()
	for key := range p.uniqueViewers {
		if key < cutoff {
			delete(p.uniqueViewers, key)
		}
	}
	p.mu.Unlock()

	p.logger.Debug("Cache cleanup completed")
}
