package view

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FetchFunc retrieves the current collection for the viewing identity.
type FetchFunc func(ctx context.Context) ([]Entry, error)

// Poller keeps a local collection approximately fresh while a history view
// is active: one immediate fetch on start, then a fixed cadence until the
// context is cancelled or Stop is called. Responses are applied in sequence
// order so a slow early fetch can never overwrite a later one.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	logger   *zap.Logger
	onUpdate func([]Entry)

	mu      sync.Mutex
	entries []Entry
	seq     uint64
	applied uint64
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPoller constructs a Poller. onUpdate, when set, is invoked with the
// fresh collection after every applied fetch.
func NewPoller(fetch FetchFunc, interval time.Duration, logger *zap.Logger, onUpdate func([]Entry)) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{fetch: fetch, interval: interval, logger: logger, onUpdate: onUpdate}
}

// Start performs an immediate fetch and begins the repeating cadence. It is
// a no-op if the poller is already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop cancels the cadence and waits for the loop to exit. No timer
// survives Stop; an in-flight fetch may complete but its result is dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.started = false
	p.mu.Unlock()

	cancel()
	<-done
}

// Refresh short-circuits the cadence with an immediate fetch.
func (p *Poller) Refresh(ctx context.Context) {
	p.fetchOnce(ctx)
}

// Snapshot returns a copy of the current collection.
func (p *Poller) Snapshot() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.fetchOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchOnce(ctx)
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	entries, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("background refresh failed, keeping previous collection", zap.Error(err))
		}
		return
	}
	if ctx.Err() != nil {
		// The view went away while this fetch was in flight.
		return
	}

	p.mu.Lock()
	if seq < p.applied {
		p.mu.Unlock()
		p.logger.Debug("discarded stale fetch result", zap.Uint64("seq", seq))
		return
	}
	p.applied = seq
	p.entries = entries
	cb := p.onUpdate
	p.mu.Unlock()

	if cb != nil {
		cb(entries)
	}
}
