package stats

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	holder  *SnapshotHolder
	logger  *zap.Logger
}

func NewHandler(service *Service, holder *SnapshotHolder, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		holder:  holder,
		logger:  logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/stats/stories", h.StoryStats)
	mux.HandleFunc("/api/v1/stats/general", h.GeneralStats)
	mux.HandleFunc("/api/v1/stats/summaries", h.Summaries)
	mux.HandleFunc("/api/v1/stats/snapshot", h.SnapshotHandler)
}

// StoryStats handles GET /api/v1/stats/stories: per-story counters over the
// trailing window, one entry per known story.
func (h *Handler) StoryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, h.service.StoryStats(r.Context()))
}

// GeneralStats handles GET /api/v1/stats/general.
func (h *Handler) GeneralStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, h.service.GeneralStats(r.Context()))
}

// Summaries handles GET /api/v1/stats/summaries?from=RFC3339&to=RFC3339,
// serving the pre-aggregated per-hour rows. Defaults to the stats window.
func (h *Handler) Summaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now().UTC()
	from := now.Add(-Window)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from timestamp", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to timestamp", http.StatusBadRequest)
			return
		}
		to = parsed
	}

	if to.Before(from) {
		http.Error(w, "from must not be after to", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.service.Summaries(r.Context(), from, to))
}

// SnapshotHandler handles GET /api/v1/stats/snapshot: the poller's last good
// snapshot, or zeroed placeholders before the first refresh lands.
func (h *Handler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, ok := h.holder.Last()
	if !ok {
		snap = Snapshot{
			Stories: []StoryStats{},
			General: ComputeGeneralStats(nil, time.Now().UTC()),
		}
	}

	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
