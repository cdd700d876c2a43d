package visitor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sessions keeps per-viewer page counters alongside the identity.
// Счётчики вспомогательные: сбой здесь не должен мешать записи просмотра.
type Sessions struct {
	kv     KV
	logger *zap.Logger
}

func NewSessions(kv KV, logger *zap.Logger) *Sessions {
	return &Sessions{
		kv:     kv,
		logger: logger,
	}
}

// TouchPageView increments the viewer's pages-viewed counter and stamps the
// session start on first sight. Errors are logged and swallowed: the counters
// are best-effort.
func (s *Sessions) TouchPageView(ctx context.Context, viewerID string) int64 {
	if viewerID == "" {
		return 0
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := s.kv.SetNX(ctx, "session_start:"+viewerID, now, 0); err != nil {
		s.logger.Warn("failed to stamp session start",
			zap.Error(err),
			zap.String("viewer_id", viewerID),
		)
	}

	// Метка последней активности перезаписывается на каждом просмотре
	if err := s.kv.Set(ctx, "session_last_seen:"+viewerID, now, 0); err != nil {
		s.logger.Warn("failed to stamp session activity",
			zap.Error(err),
			zap.String("viewer_id", viewerID),
		)
	}

	pages, err := s.kv.Incr(ctx, "pages_viewed:"+viewerID)
	if err != nil {
		s.logger.Warn("failed to increment pages viewed",
			zap.Error(err),
			zap.String("viewer_id", viewerID),
		)
		return 0
	}

	return pages
}
