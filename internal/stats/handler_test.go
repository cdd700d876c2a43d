package stats

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestHandler() *Handler {
	svc := NewService(&fakeEventSource{}, &fakeSummaryRepo{}, []string{"1-1"}, zap.NewNop())
	return NewHandler(svc, NewSnapshotHolder(), zap.NewNop())
}

func TestSummaries_DefaultsToWindow(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/summaries", nil)
	rec := httptest.NewRecorder()
	h.Summaries(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSummaries_InvertedRangeRejected(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/stats/summaries?from=2025-06-15T12:00:00Z&to=2025-06-14T12:00:00Z", nil)
	rec := httptest.NewRecorder()
	h.Summaries(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaries_MalformedTimestampRejected(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/summaries?from=yesterday", nil)
	rec := httptest.NewRecorder()
	h.Summaries(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
