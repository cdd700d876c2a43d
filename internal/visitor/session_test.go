package visitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTouchPageView_CountsAndStamps(t *testing.T) {
	kv := newFakeKV()
	sessions := NewSessions(kv, zap.NewNop())

	assert.Equal(t, int64(1), sessions.TouchPageView(context.Background(), "viewer-1"))
	start := kv.data["session_start:viewer-1"]
	assert.NotEmpty(t, start)
	assert.NotEmpty(t, kv.data["session_last_seen:viewer-1"])

	assert.Equal(t, int64(2), sessions.TouchPageView(context.Background(), "viewer-1"))
	// Начало сессии не перезаписывается повторным просмотром
	assert.Equal(t, start, kv.data["session_start:viewer-1"])
}

func TestTouchPageView_BestEffortOnFailure(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("connection refused")
	kv.incrErr = errors.New("connection refused")
	sessions := NewSessions(kv, zap.NewNop())

	assert.Equal(t, int64(0), sessions.TouchPageView(context.Background(), "viewer-1"))
}

func TestTouchPageView_EmptyViewer(t *testing.T) {
	sessions := NewSessions(newFakeKV(), zap.NewNop())

	assert.Equal(t, int64(0), sessions.TouchPageView(context.Background(), ""))
}
