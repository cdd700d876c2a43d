package stats

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the last known dashboard state. Poll results simply replace
// the previous snapshot; stale reads are acceptable.
type Snapshot struct {
	Stories   []StoryStats `json:"stories"`
	General   GeneralStats `json:"general"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// SnapshotHolder keeps the last applied snapshot. Refreshes are tagged with
// a sequence number taken at start; a completion with a lower tag than the
// last applied one is discarded, so an in-flight response from a previous
// poll cycle can never overwrite newer data.
type SnapshotHolder struct {
	mu      sync.RWMutex
	nextSeq uint64
	applied uint64
	snap    Snapshot
	hasSnap bool
}

func NewSnapshotHolder() *SnapshotHolder {
	return &SnapshotHolder{}
}

// Begin reserves a sequence tag for a refresh attempt.
func (h *SnapshotHolder) Begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	return h.nextSeq
}

// Complete applies the snapshot unless a newer one has already landed.
func (h *SnapshotHolder) Complete(seq uint64, snap Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq <= h.applied {
		return false
	}
	h.applied = seq
	h.snap = snap
	h.hasSnap = true
	return true
}

// Last returns the last good snapshot; ok is false until the first refresh
// lands (callers should render zeroed placeholders then).
func (h *SnapshotHolder) Last() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap, h.hasSnap
}

// Poller refreshes the holder on a fixed interval. Each refresh runs in its
// own goroutine so a slow cycle never delays the next tick.
type Poller struct {
	service  *Service
	holder   *SnapshotHolder
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(service *Service, holder *SnapshotHolder, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		service:  service,
		holder:   holder,
		interval: interval,
		logger:   logger,
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go p.refresh(ctx)
		case <-ctx.Done():
			p.logger.Info("stats poller stopped")
			return
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	seq := p.holder.Begin()
	snap := p.service.Refresh(ctx)
	if !p.holder.Complete(seq, snap) {
		p.logger.Debug("stale snapshot discarded", zap.Uint64("seq", seq))
	}
}
