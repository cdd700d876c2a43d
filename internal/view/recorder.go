package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Wuchinator/story-analytics/internal/geoip"
	"go.uber.org/zap"
)

// Outcome of a record call. A store or RPC failure is the error return,
// not an Outcome value.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeAlreadyRecorded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeAlreadyRecorded:
		return "already_recorded"
	default:
		return "unknown"
	}
}

type KafkaProducer interface {
	SendMessage(ctx context.Context, key string, value any) error
}

type GeoClient interface {
	PublicIP(ctx context.Context) string
	Locate(ctx context.Context, ip string) geoip.Location
}

type SessionTracker interface {
	TouchPageView(ctx context.Context, viewerID string) int64
}

// ClientMeta is what the transport layer knows about the caller.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type RecorderConfig struct {
	// DedupWindow подавляет повторные просмотры пары (viewer, story)
	DedupWindow time.Duration
	// MetadataTimeout ограничивает сбор IP/geo, чтобы запись не зависала
	MetadataTimeout time.Duration
}

type Recorder struct {
	repo     Repository
	producer KafkaProducer
	geo      GeoClient
	sessions SessionTracker
	cfg      RecorderConfig
	logger   *zap.Logger
}

func NewRecorder(
	repo Repository,
	producer KafkaProducer,
	geo GeoClient,
	sessions SessionTracker,
	cfg RecorderConfig,
	logger *zap.Logger,
) *Recorder {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 24 * time.Hour
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 3 * time.Second
	}
	return &Recorder{
		repo:     repo,
		producer: producer,
		geo:      geo,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Record persists a view for (storyID, viewerID) unless the same pair was
// already seen inside the dedup window. The check-then-insert pair is not
// atomic across concurrent callers; the unique constraint in the store
// resolves the race and the advisory read keeps the common path cheap.
// Metadata gathering failures never block the insert.
func (r *Recorder) Record(ctx context.Context, storyID, viewerID string, meta ClientMeta) (Outcome, error) {
	if !ValidStoryID(storyID) {
		return 0, fmt.Errorf("record view: %w", ErrInvalidStoryID)
	}
	if viewerID == "" {
		return 0, fmt.Errorf("record view: %w", ErrInvalidViewerID)
	}

	since := time.Now().UTC().Add(-r.cfg.DedupWindow)

	recent, err := r.repo.FindRecent(ctx, storyID, viewerID, since)
	if err != nil && !errors.Is(err, ErrViewNotFound) {
		// Advisory read: при сбое полагаемся на constraint при вставке
		r.logger.Warn("recent-view lookup failed, proceeding to insert",
			zap.Error(err),
			zap.String("story_id", storyID),
			zap.String("viewer_id", viewerID),
		)
	}
	if recent != nil {
		r.logger.Debug("view already recorded in window",
			zap.String("story_id", storyID),
			zap.String("viewer_id", viewerID),
			zap.Time("viewed_at", recent.ViewedAt),
		)
		return OutcomeAlreadyRecorded, nil
	}

	event := NewEvent(storyID, viewerID)
	r.enrich(ctx, event, meta)

	if err := r.repo.Create(ctx, event); err != nil {
		if errors.Is(err, ErrDuplicateView) {
			// Проигранная гонка между вкладками - не ошибка
			return OutcomeAlreadyRecorded, nil
		}
		r.logger.Error("failed to record view",
			zap.Error(err),
			zap.String("story_id", storyID),
			zap.String("viewer_id", viewerID),
		)
		return 0, fmt.Errorf("failed to record view: %w", err)
	}

	if r.sessions != nil {
		r.sessions.TouchPageView(ctx, viewerID)
	}

	if r.producer != nil {
		if err := r.producer.SendMessage(ctx, viewerID, event); err != nil {
			r.logger.Error("failed to publish view event",
				zap.Error(err),
				zap.String("view_id", event.ID.String()),
			)
		}
	}

	r.logger.Info("View recorded",
		zap.String("view_id", event.ID.String()),
		zap.String("story_id", storyID),
		zap.String("viewer_id", viewerID),
		zap.String("device_type", event.DeviceType),
	)

	return OutcomeRecorded, nil
}

// ListViewers returns the story's raw viewer rows, newest first.
func (r *Recorder) ListViewers(ctx context.Context, storyID string, limit int) ([]*Event, error) {
	if !ValidStoryID(storyID) {
		return nil, ErrInvalidStoryID
	}
	if limit <= 0 {
		limit = 100
	}

	events, err := r.repo.ListByStory(ctx, storyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list viewers: %w", err)
	}

	return events, nil
}

func (r *Recorder) enrich(ctx context.Context, event *Event, meta ClientMeta) {
	event.UserAgent = meta.UserAgent
	if meta.UserAgent != "" {
		device := DetectDevice(meta.UserAgent)
		event.DeviceType = device.DeviceType
		event.Browser = device.Browser
		event.BrowserVersion = device.BrowserVersion
		event.OS = device.OS
		event.OSVersion = device.OSVersion
		event.IsBot = device.IsBot
	}

	metaCtx, cancel := context.WithTimeout(ctx, r.cfg.MetadataTimeout)
	defer cancel()

	ip := meta.IP
	if ip == "" && r.geo != nil {
		ip = r.geo.PublicIP(metaCtx)
	}
	if ip == "" {
		ip = SentinelIP
	}
	event.ViewerIP = ip

	if r.geo != nil && ip != SentinelIP {
		loc := r.geo.Locate(metaCtx, ip)
		event.Country = loc.Country
		event.City = loc.City
	}
}
