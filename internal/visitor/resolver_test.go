package visitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Wuchinator/story-analytics/pkg/rediskv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	data     map[string]string
	getErr   error
	setErr   error
	incrErr  error
	setNXHit bool // имитирует проигранную гонку SetNX
	missOnce bool // первый Get промахивается, как до записи победителя
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	if f.missOnce {
		f.missOnce = false
		return "", rediskv.ErrNotFound
	}
	val, ok := f.data[key]
	if !ok {
		return "", rediskv.ErrNotFound
	}
	return val, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.setNXHit {
		return false, nil
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value
	return true, nil
}

func (f *fakeKV) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.data[key] = f.data[key] + "+"
	return int64(len(f.data[key])), nil
}

func TestResolve_CreatesOnceAndSticks(t *testing.T) {
	kv := newFakeKV()
	resolver := NewResolver(kv, zap.NewNop())

	first, err := resolver.Resolve(context.Background(), "fp-1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := resolver.Resolve(context.Background(), "fp-1")
	require.NoError(t, err)
	assert.Equal(t, first, second, "identity must be stable for a fingerprint")

	other, err := resolver.Resolve(context.Background(), "fp-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestResolve_StorageUnavailableOnGet(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	resolver := NewResolver(kv, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "fp-1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestResolve_StorageUnavailableOnPersist(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("connection refused")
	resolver := NewResolver(kv, zap.NewNop())

	// Никогда не возвращаем несохранённый идентификатор
	_, err := resolver.Resolve(context.Background(), "fp-1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestResolve_LostRaceReturnsWinner(t *testing.T) {
	kv := newFakeKV()
	kv.data["viewer:fp-1"] = "winner-id"
	kv.setNXHit = true
	kv.missOnce = true
	resolver := NewResolver(kv, zap.NewNop())

	id, err := resolver.Resolve(context.Background(), "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "winner-id", id)
}

func TestResolve_EmptyFingerprint(t *testing.T) {
	resolver := NewResolver(newFakeKV(), zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyFingerprint)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("203.0.113.7", "agent-a")
	b := Fingerprint("203.0.113.7", "agent-a")
	c := Fingerprint("203.0.113.8", "agent-a")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // sha256 hex
}
