package view

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Wuchinator/story-analytics/internal/visitor"
	"go.uber.org/zap"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, fingerprint string) (string, error)
}

type Handler struct {
	recorder *Recorder
	resolver IdentityResolver
	logger   *zap.Logger
}

func NewHandler(recorder *Recorder, resolver IdentityResolver, logger *zap.Logger) *Handler {
	return &Handler{
		recorder: recorder,
		resolver: resolver,
		logger:   logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/views", h.RecordView)
	mux.HandleFunc("/api/v1/stories/", h.StoryViewers)
}

type recordRequest struct {
	StoryID     string `json:"story_id"`
	ViewerID    string `json:"viewer_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type recordResponse struct {
	Outcome  string `json:"outcome"`
	ViewerID string `json:"viewer_id"`
}

// RecordView handles POST /api/v1/views. Callers without a persisted viewer
// id get one resolved from their fingerprint (or IP+UA when none is sent).
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	clientIP := extractIP(r)

	viewerID := req.ViewerID
	if viewerID == "" {
		fingerprint := req.Fingerprint
		if fingerprint == "" {
			fingerprint = visitor.Fingerprint(clientIP, r.UserAgent())
		}

		resolved, err := h.resolver.Resolve(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, visitor.ErrStorageUnavailable) {
				h.logger.Error("viewer storage unavailable", zap.Error(err))
				http.Error(w, "identity storage unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "could not resolve viewer", http.StatusBadRequest)
			return
		}
		viewerID = resolved
	}

	outcome, err := h.recorder.Record(ctx, req.StoryID, viewerID, ClientMeta{
		IP:        clientIP,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStoryID), errors.Is(err, ErrInvalidViewerID):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "failed to record view", http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{
		Outcome:  outcome.String(),
		ViewerID: viewerID,
	})
}

// StoryViewers handles GET /api/v1/stories/{id}/viewers.
func (h *Handler) StoryViewers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/stories/")
	storyID, rest, ok := strings.Cut(path, "/")
	if !ok || rest != "viewers" || storyID == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.recorder.ListViewers(r.Context(), storyID, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidStoryID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to list story viewers",
			zap.Error(err),
			zap.String("story_id", storyID),
		)
		http.Error(w, "failed to list viewers", http.StatusBadGateway)
		return
	}

	if events == nil {
		events = []*Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// extractIP prefers proxy headers over the socket peer.
func extractIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
