package view

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one observed viewing of one video unit. Created exactly once per
// accepted record call, never updated, never deleted by this service.
type Event struct {
	ID             uuid.UUID `db:"id" json:"id"`
	StoryID        string    `db:"story_id" json:"story_id"`
	ViewerID       string    `db:"viewer_id" json:"viewer_id"`
	ViewerIP       string    `db:"viewer_ip" json:"viewer_ip"`
	UserAgent      string    `db:"user_agent" json:"user_agent"`
	Country        string    `db:"country" json:"country,omitempty"`
	City           string    `db:"city" json:"city,omitempty"`
	DeviceType     string    `db:"device_type" json:"device_type,omitempty"`
	Browser        string    `db:"browser" json:"browser,omitempty"`
	BrowserVersion string    `db:"browser_version" json:"browser_version,omitempty"`
	OS             string    `db:"operating_system" json:"operating_system,omitempty"`
	OSVersion      string    `db:"os_version" json:"os_version,omitempty"`
	IsBot          bool      `db:"is_bot" json:"is_bot"`
	ViewedAt       time.Time `db:"viewed_at" json:"viewed_at"`
}

// SentinelIP is stored when the viewer's address could not be resolved.
const SentinelIP = "0.0.0.0"

func NewEvent(storyID, viewerID string) *Event {
	return &Event{
		ID:       uuid.New(),
		StoryID:  storyID,
		ViewerID: viewerID,
		ViewerIP: SentinelIP,
		ViewedAt: time.Now().UTC(),
	}
}

func (e *Event) Validate() error {
	if !ValidStoryID(e.StoryID) {
		return ErrInvalidStoryID
	}
	if e.ViewerID == "" {
		return ErrInvalidViewerID
	}
	return nil
}

// ValidStoryID checks the composite <storyGroup>-<videoIndex> form, e.g. "1-3".
func ValidStoryID(id string) bool {
	group, index, ok := strings.Cut(id, "-")
	return ok && group != "" && index != ""
}
