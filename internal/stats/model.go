package stats

import (
	"time"
)

// Window is the trailing interval all derived statistics are computed over.
const Window = 24 * time.Hour

// StoryStats is derived per story, recomputed on demand, never persisted.
type StoryStats struct {
	StoryID          string     `json:"story_id"`
	UniqueViewers24h int64      `json:"unique_views_24h"`
	TotalViews24h    int64      `json:"total_views_24h"`
	LastView         *time.Time `json:"last_view"`
}

type HourBucket struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}

type GeneralStats struct {
	TotalViews    int64 `json:"total_views"`
	UniqueViewers int64 `json:"unique_viewers"`
	// Всегда 24 бакета, "00:00".."23:00", по возрастанию
	ViewsPerHour    []HourBucket `json:"views_per_hour"`
	RetentionRate   float64      `json:"retention_rate"`
	AvgViewsPerUser float64      `json:"avg_views_per_user"`
}

// Summary is one pre-aggregated bucket maintained by the Kafka consumer.
type Summary struct {
	ID            int       `db:"id" json:"id"`
	StoryID       string    `db:"story_id" json:"story_id"`
	Date          time.Time `db:"date" json:"date"`
	Hour          int       `db:"hour" json:"hour"`
	TotalViews    int64     `db:"total_views" json:"total_views"`
	UniqueViewers int64     `db:"unique_viewers" json:"unique_viewers"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func NewSummary(storyID string, date time.Time, hour int) *Summary {
	return &Summary{
		StoryID:   storyID,
		Date:      date.Truncate(24 * time.Hour),
		Hour:      hour,
		UpdatedAt: time.Now().UTC(),
	}
}
