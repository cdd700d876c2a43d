package stats

import (
	"context"
	"time"

	"github.com/Wuchinator/story-analytics/internal/view"
	"go.uber.org/zap"
)

type EventSource interface {
	ListSince(ctx context.Context, since time.Time) ([]*view.Event, error)
}

// Service computes dashboard statistics. It never returns an error toward
// the caller: absence of data is represented as zero values, so the
// dashboard can always render something.
type Service struct {
	events    EventSource
	summaries SummaryRepository
	storyIDs  []string
	logger    *zap.Logger
}

func NewService(
	events EventSource,
	summaries SummaryRepository,
	storyIDs []string,
	logger *zap.Logger,
) *Service {
	return &Service{
		events:    events,
		summaries: summaries,
		storyIDs:  storyIDs,
		logger:    logger,
	}
}

// StoryStats returns one entry per known story, in the configured order,
// zero-filled when the store is unreachable.
func (s *Service) StoryStats(ctx context.Context) []StoryStats {
	now := time.Now().UTC()

	events, err := s.events.ListSince(ctx, now.Add(-Window))
	if err != nil {
		s.logger.Error("failed to load raw views, returning zero-filled stats", zap.Error(err))
		events = nil
	}

	computed := ComputeStoryStats(events, s.storyIDs, now)

	ordered := make([]StoryStats, 0, len(s.storyIDs))
	for _, id := range s.storyIDs {
		ordered = append(ordered, computed[id])
	}

	return ordered
}

func (s *Service) GeneralStats(ctx context.Context) GeneralStats {
	now := time.Now().UTC()

	events, err := s.events.ListSince(ctx, now.Add(-Window))
	if err != nil {
		s.logger.Error("failed to load raw views, returning zero-filled stats", zap.Error(err))
		events = nil
	}

	return ComputeGeneralStats(events, now)
}

// Summaries exposes the pre-aggregated per-hour rows maintained by the
// Kafka consumer. Failures degrade to an empty slice.
func (s *Service) Summaries(ctx context.Context, from, to time.Time) []*Summary {
	rows, err := s.summaries.GetByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to load summaries", zap.Error(err))
		return []*Summary{}
	}
	if rows == nil {
		rows = []*Summary{}
	}
	return rows
}

// Refresh produces a full snapshot for the poller.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	return Snapshot{
		Stories:   s.StoryStats(ctx),
		General:   s.GeneralStats(ctx),
		FetchedAt: time.Now().UTC(),
	}
}
