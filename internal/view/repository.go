package view

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Wuchinator/story-analytics/pkg/postgres"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	// FindRecent returns the latest event for the pair with viewed_at >= since.
	FindRecent(ctx context.Context, storyID, viewerID string, since time.Time) (*Event, error)
	// ListSince returns every event with viewed_at >= since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]*Event, error)
	// ListByStory returns the story's events, newest first.
	ListByStory(ctx context.Context, storyID string, limit int) ([]*Event, error)
}

type repository struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewRepository(db *postgres.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO story_views (
			id, story_id, viewer_id, viewer_ip, user_agent,
			country, city, device_type, browser, browser_version,
			operating_system, os_version, is_bot, viewed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.StoryID,
		event.ViewerID,
		event.ViewerIP,
		event.UserAgent,
		event.Country,
		event.City,
		event.DeviceType,
		event.Browser,
		event.BrowserVersion,
		event.OS,
		event.OSVersion,
		event.IsBot,
		event.ViewedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Уникальный индекс по (story_id, viewer_id, день) -
			// хранилище является финальным арбитром окна дедупликации
			r.logger.Debug("Duplicate view rejected by store",
				zap.String("story_id", event.StoryID),
				zap.String("viewer_id", event.ViewerID),
			)
			return ErrDuplicateView
		}
		r.logger.Error("Failed to create view", zap.Error(err))
		return fmt.Errorf("failed to create view: %w", err)
	}

	r.logger.Debug("View created",
		zap.String("view_id", event.ID.String()),
		zap.String("story_id", event.StoryID),
		zap.String("viewer_id", event.ViewerID),
	)

	return nil
}

func (r *repository) FindRecent(ctx context.Context, storyID, viewerID string, since time.Time) (*Event, error) {
	query := `
		SELECT id, story_id, viewer_id, viewer_ip, user_agent,
		       country, city, device_type, browser, browser_version,
		       operating_system, os_version, is_bot, viewed_at
		FROM story_views
		WHERE story_id = $1 AND viewer_id = $2 AND viewed_at >= $3
		ORDER BY viewed_at DESC
		LIMIT 1
	`

	var event Event
	err := r.db.GetContext(ctx, &event, query, storyID, viewerID, since)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrViewNotFound
		}
		return nil, fmt.Errorf("failed to find recent view: %w", err)
	}

	return &event, nil
}

func (r *repository) ListSince(ctx context.Context, since time.Time) ([]*Event, error) {
	query := `
		SELECT id, story_id, viewer_id, viewer_ip, user_agent,
		       country, city, device_type, browser, browser_version,
		       operating_system, os_version, is_bot, viewed_at
		FROM story_views
		WHERE viewed_at >= $1
		ORDER BY viewed_at ASC
	`

	var events []*Event
	err := r.db.SelectContext(ctx, &events, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	return events, nil
}

func (r *repository) ListByStory(ctx context.Context, storyID string, limit int) ([]*Event, error) {
	query := `
		SELECT id, story_id, viewer_id, viewer_ip, user_agent,
		       country, city, device_type, browser, browser_version,
		       operating_system, os_version, is_bot, viewed_at
		FROM story_views
		WHERE story_id = $1
		ORDER BY viewed_at DESC
		LIMIT $2
	`

	var events []*Event
	err := r.db.SelectContext(ctx, &events, query, storyID, limit)
	if err != nil {
		r.logger.Error("Failed to list story views",
			zap.Error(err),
			zap.String("story_id", storyID),
		)
		return nil, fmt.Errorf("failed to list story views: %w", err)
	}

	return events, nil
}
