package visitor

import "errors"

var (
	// ErrStorageUnavailable означает что KV-хранилище недоступно.
	// Резолвер никогда не выдаёт несохранённый идентификатор.
	ErrStorageUnavailable = errors.New("visitor storage unavailable")

	ErrEmptyFingerprint = errors.New("empty fingerprint")
)
