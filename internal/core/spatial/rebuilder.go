package spatial

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/observability/log"
)

// RebuildInfo is the payload of bus.TypeIndexRebuilt events.
type RebuildInfo struct {
	Generation uint64
	Entries    int
	BuildTime  time.Duration
}

// Rebuilder replaces the store's snapshot on its own period.
//
// The simulation thread polls Due once per tick and, when it reports true,
// hands a copy of the tracked entries to Submit. The R-tree is built on the
// Run goroutine so the tick never pays for construction.
//
// Every capture is numbered when it is handed over. Installs are serialised
// and a capture older than the installed one is dropped, so a synchronous
// RebuildNow racing an asynchronous build never goes back in time.
type Rebuilder struct {
	store  *Store
	opts   TreeOptions
	period time.Duration
	events bus.EventBus
	logger log.Log

	requests   chan capture
	due        atomic.Bool
	captures   atomic.Uint64
	generation atomic.Uint64

	mu        sync.Mutex
	installed uint64
	stale     atomic.Uint64
}

type capture struct {
	seq     uint64
	entries []Entry
}

// NewRebuilder creates a rebuilder. events may be nil.
func NewRebuilder(store *Store, opts TreeOptions, period time.Duration, events bus.EventBus, logger log.Log) *Rebuilder {
	if logger == nil {
		logger = log.NewNop()
	}
	r := &Rebuilder{
		store:    store,
		opts:     opts,
		period:   period,
		events:   events,
		logger:   logger.With(log.String("component", "spatial")),
		requests: make(chan capture, 1),
	}
	r.due.Store(true)
	return r
}

// Period is the rebuild cadence.
func (r *Rebuilder) Period() time.Duration { return r.period }

// Due reports, at most once per period, that a capture should be submitted.
func (r *Rebuilder) Due() bool {
	return r.due.CompareAndSwap(true, false)
}

// Submit queues entries for an asynchronous rebuild without blocking.
// It reports false when a previous capture is still waiting to be built.
func (r *Rebuilder) Submit(entries []Entry) bool {
	select {
	case r.requests <- capture{seq: r.captures.Add(1), entries: entries}:
		return true
	default:
		return false
	}
}

// RebuildNow builds and installs a snapshot synchronously and returns the
// installed snapshot.
func (r *Rebuilder) RebuildNow(entries []Entry) *Snapshot {
	return r.build(capture{seq: r.captures.Add(1), entries: entries})
}

// Stale counts captures dropped because a newer one was installed first.
func (r *Rebuilder) Stale() uint64 { return r.stale.Load() }

func (r *Rebuilder) build(c capture) *Snapshot {
	r.mu.Lock()
	if c.seq <= r.installed {
		r.mu.Unlock()
		r.stale.Add(1)
		return r.store.Load()
	}
	start := time.Now()
	snap := Build(c.entries, r.opts, r.generation.Add(1))
	r.store.Swap(snap)
	r.installed = c.seq
	took := time.Since(start)
	r.mu.Unlock()

	r.announce(snap, took)
	return snap
}

// Run marks a rebuild due every period and builds submitted captures until ctx is done.
func (r *Rebuilder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info("Spatial rebuilder started", log.Duration("period", r.period))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Spatial rebuilder stopped", log.Uint64("generation", r.generation.Load()))
			return nil
		case <-ticker.C:
			r.due.Store(true)
		case c := <-r.requests:
			r.build(c)
		}
	}
}

func (r *Rebuilder) announce(snap *Snapshot, took time.Duration) {
	r.logger.Debug("Spatial index rebuilt",
		log.Uint64("generation", snap.Generation()),
		log.Int("entries", snap.Len()),
		log.Duration("build_time", took))

	if r.events == nil {
		return
	}
	info := RebuildInfo{Generation: snap.Generation(), Entries: snap.Len(), BuildTime: took}
	if err := r.events.Publish(bus.NewEvent(bus.TypeIndexRebuilt, "spatial", info)); err != nil {
		r.logger.Warn("Rebuild event handler failed", log.Error(err))
	}
}
