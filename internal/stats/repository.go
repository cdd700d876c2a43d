package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type SummaryRepository interface {
	Upsert(ctx context.Context, summary *Summary) error
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*Summary, error)
}

type summaryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSummaryRepository(db *sqlx.DB, logger *zap.Logger) SummaryRepository {
	return &summaryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *summaryRepository) Upsert(ctx context.Context, summary *Summary) error {
	query := `
		INSERT INTO story_view_summary (story_id, date, hour, total_views, unique_viewers, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (story_id, date, hour)
		DO UPDATE SET
			total_views = story_view_summary.total_views + EXCLUDED.total_views,
			unique_viewers = EXCLUDED.unique_viewers,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		summary.StoryID,
		summary.Date,
		summary.Hour,
		summary.TotalViews,
		summary.UniqueViewers,
		summary.UpdatedAt,
	).Scan(&summary.ID)

	if err != nil {
		r.logger.Error("Failed to upsert summary", zap.Error(err))
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	r.logger.Debug("Summary upserted",
		zap.String("story_id", summary.StoryID),
		zap.String("date", summary.Date.Format("2006-01-02")),
		zap.Int("hour", summary.Hour),
		zap.Int64("total_views", summary.TotalViews),
	)

	return nil
}

func (r *summaryRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*Summary, error) {
	query := `
		SELECT id, story_id, date, hour, total_views, unique_viewers, updated_at
		FROM story_view_summary
		WHERE date >= $1 AND date <= $2
		ORDER BY story_id, date, hour
	`

	var summaries []*Summary
	err := r.db.SelectContext(ctx, &summaries, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}

	return summaries, nil
}
