package visitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Wuchinator/story-analytics/pkg/rediskv"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KV is the persistent key-value boundary used to pin a viewer identity
// to a device fingerprint. A miss is reported as rediskv.ErrNotFound.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
}

type Resolver struct {
	kv     KV
	logger *zap.Logger
}

func NewResolver(kv KV, logger *zap.Logger) *Resolver {
	return &Resolver{
		kv:     kv,
		logger: logger,
	}
}

// Fingerprint derives a stable lookup key from whatever the client exposes.
// Не является security boundary: это best-effort ключ аналитики,
// сбрасывается сменой браузера или очисткой хранилища.
func Fingerprint(ip, userAgent string) string {
	hash := sha256.Sum256([]byte(ip + userAgent))
	return hex.EncodeToString(hash[:])
}

// Resolve returns the viewer id bound to the fingerprint, creating and
// persisting a fresh one on first sight. The id is never returned unless
// it is known to be stored.
func (r *Resolver) Resolve(ctx context.Context, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", ErrEmptyFingerprint
	}

	key := "viewer:" + fingerprint

	id, err := r.kv.Get(ctx, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, rediskv.ErrNotFound) {
		r.logger.Error("failed to look up viewer id", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	id = uuid.New().String()

	created, err := r.kv.SetNX(ctx, key, id, 0)
	if err != nil {
		r.logger.Error("failed to persist viewer id", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if !created {
		// Конкурентный вызов успел записать первым
		id, err = r.kv.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return id, nil
	}

	r.logger.Info("New viewer identity created", zap.String("viewer_id", id))

	return id, nil
}
