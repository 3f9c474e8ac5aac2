package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/boidsim/internal/config"
	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/observability/log"
	"github.com/zeusync/boidsim/internal/core/scene"
	"github.com/zeusync/boidsim/internal/core/spatial"
	"github.com/zeusync/boidsim/internal/core/world"
	"github.com/zeusync/boidsim/internal/feed"
)

var ErrNilWorld = errors.New("engine needs a world")

// Stats summarises the engine since Run started.
type Stats struct {
	RunID   string
	Ticks   uint64
	AvgStep time.Duration
	MaxStep time.Duration
	Uptime  time.Duration
	World   world.Stats
	// Rebuilds counts index rebuilds announced on the bus since New.
	Rebuilds      uint64
	LastBuildTime time.Duration
	MaxBuildTime  time.Duration
}

// Engine drives a world in real time and optionally serves it to renderers.
type Engine struct {
	cfg       config.Config
	world     *world.World
	rebuilder *spatial.Rebuilder
	events    bus.EventBus
	logger    log.Log
	runID     string

	frame atomic.Pointer[world.Frame]

	rebuilds  atomic.Uint64
	lastBuild atomic.Int64
	maxBuild  atomic.Int64

	started   time.Time
	stepTotal time.Duration
	stepMax   time.Duration
	steps     uint64
}

// New creates an engine over an already constructed world. When events is
// not nil the engine counts the rebuilds announced on it and hands it to the
// feed.
func New(cfg config.Config, w *world.World, rebuilder *spatial.Rebuilder, events bus.EventBus, logger log.Log) (*Engine, error) {
	if w == nil {
		return nil, ErrNilWorld
	}
	if logger == nil {
		logger = log.NewNop()
	}
	runID := uuid.NewString()
	e := &Engine{
		cfg:       cfg,
		world:     w,
		rebuilder: rebuilder,
		events:    events,
		logger:    logger.With(log.String("component", "engine"), log.String("run_id", runID)),
		runID:     runID,
	}
	if events != nil {
		if _, err := events.Subscribe(bus.TypeIndexRebuilt, e.onRebuilt); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", bus.TypeIndexRebuilt, err)
		}
	}
	return e, nil
}

// onRebuilt runs on the rebuilder goroutine.
func (e *Engine) onRebuilt(ev bus.Event) error {
	info, ok := ev.Data().(spatial.RebuildInfo)
	if !ok {
		return nil
	}
	e.rebuilds.Add(1)
	took := int64(info.BuildTime)
	e.lastBuild.Store(took)
	for {
		cur := e.maxBuild.Load()
		if took <= cur || e.maxBuild.CompareAndSwap(cur, took) {
			return nil
		}
	}
}

// World exposes the simulated world.
func (e *Engine) World() *world.World { return e.world }

// RunID identifies this engine instance in logs.
func (e *Engine) RunID() string { return e.runID }

// LatestFrame returns the last published frame, or nil.
func (e *Engine) LatestFrame() *world.Frame { return e.frame.Load() }

// Populate spawns the configured scene and builds the first index.
func (e *Engine) Populate() (scene.Summary, error) {
	sum, err := scene.Populate(e.world, e.cfg.Scene, e.cfg.Simulation.Seed)
	if err != nil {
		return sum, fmt.Errorf("populate scene: %w", err)
	}
	snap := e.world.RebuildIndexNow()
	e.frame.Store(e.world.Frame())

	e.logger.Info("Scene populated",
		log.Int("agents", sum.Agents),
		log.Int("obstacles", sum.Obstacles),
		log.Int("indexed", snap.Len()))
	return sum, nil
}

// Run ticks the world until ctx is done. The index rebuilder and, when
// enabled, the renderer feed run alongside the loop.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.rebuilder.Run(ctx) })

	var srv *feed.Server
	if e.cfg.Feed.Enabled {
		var err error
		srv, err = feed.NewServer(e.cfg.Feed, e, e.world, e.events, e.logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(ctx) })
	}

	g.Go(func() error { return e.loop(ctx, srv != nil) })

	err := g.Wait()
	e.logStats("Engine stopped")
	return err
}

func (e *Engine) loop(ctx context.Context, publish bool) error {
	sim := e.cfg.Simulation
	ticker := time.NewTicker(sim.TickInterval)
	defer ticker.Stop()

	var statsC <-chan time.Time
	if sim.StatsInterval > 0 {
		stats := time.NewTicker(sim.StatsInterval)
		defer stats.Stop()
		statsC = stats.C
	}

	e.started = time.Now()
	last := e.started
	lastFrame := time.Time{}
	e.logger.Info("Engine started",
		log.Duration("tick_interval", sim.TickInterval),
		log.Duration("fixed_step", sim.FixedStep),
		log.Duration("rebuild_period", e.rebuilder.Period()),
		log.Int("agents", len(e.world.Agents())))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-statsC:
			e.logStats("Engine stats")
		case now := <-ticker.C:
			dt := min(now.Sub(last), sim.MaxFrameTime)
			last = now

			if err := e.step(dt); err != nil {
				return err
			}
			if publish && now.Sub(lastFrame) >= e.cfg.Feed.Interval {
				e.frame.Store(e.world.Frame())
				lastFrame = now
			}
		}
	}
}

func (e *Engine) step(dt time.Duration) error {
	start := time.Now()
	if err := e.world.Step(dt); err != nil {
		return err
	}
	took := time.Since(start)
	e.steps++
	e.stepTotal += took
	e.stepMax = max(e.stepMax, took)
	return nil
}

// Stats reports the engine counters. It must be called from the goroutine
// running the loop, or after Run returns.
func (e *Engine) Stats() Stats {
	s := Stats{
		RunID:   e.runID,
		Ticks:   e.steps,
		MaxStep: e.stepMax,
		World:   e.world.Stats(),

		Rebuilds:      e.rebuilds.Load(),
		LastBuildTime: time.Duration(e.lastBuild.Load()),
		MaxBuildTime:  time.Duration(e.maxBuild.Load()),
	}
	if e.steps > 0 {
		s.AvgStep = e.stepTotal / time.Duration(e.steps)
	}
	if !e.started.IsZero() {
		s.Uptime = time.Since(e.started)
	}
	return s
}

func (e *Engine) logStats(msg string) {
	s := e.Stats()
	e.logger.Info(msg,
		log.Uint64("ticks", s.Ticks),
		log.Uint64("fixed_steps", s.World.FixedSteps),
		log.Duration("avg_step", s.AvgStep),
		log.Duration("max_step", s.MaxStep),
		log.Uint64("index_generation", s.World.IndexGeneration),
		log.Int("index_entries", s.World.IndexEntries),
		log.Duration("index_age", s.World.IndexAge),
		log.Uint64("rebuilds", s.Rebuilds),
		log.Duration("last_build", s.LastBuildTime),
		log.Uint64("wall_hits", s.World.WallHits),
		log.Duration("dropped_time", s.World.DroppedTime))
}

// BenchResult summarises a headless run.
type BenchResult struct {
	Ticks        int
	SimTime      time.Duration
	Wall         time.Duration
	Rebuilds     int
	MeanDistance float64
	MaxSpeed     float32
	// TicksPerSecond is measured against wall time.
	TicksPerSecond float64
}

// Bench steps the world ticks times by a fixed dt without a clock, rebuilding
// the index synchronously every rebuild period of simulated time.
func (e *Engine) Bench(ctx context.Context, ticks int, dt time.Duration) (BenchResult, error) {
	if dt <= 0 {
		dt = e.cfg.Simulation.TickInterval
	}
	period := e.cfg.Spatial.RebuildPeriod
	res := BenchResult{Ticks: ticks}

	start := time.Now()
	var sinceRebuild time.Duration
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			res.Ticks = i
			break
		}
		if err := e.step(dt); err != nil {
			return res, err
		}
		res.SimTime += dt
		sinceRebuild += dt
		if sinceRebuild >= period {
			e.world.RebuildIndexNow()
			res.Rebuilds++
			sinceRebuild = 0
		}
		for _, a := range e.world.Agents() {
			res.MaxSpeed = max(res.MaxSpeed, a.Speed())
		}
	}
	res.Wall = time.Since(start)
	if res.Wall > 0 {
		res.TicksPerSecond = float64(res.Ticks) / res.Wall.Seconds()
	}

	var sum float64
	n := 0
	for _, a := range e.world.Agents() {
		if !a.HasTarget {
			continue
		}
		sum += float64(a.Target.Sub(a.Position).Len())
		n++
	}
	if n > 0 {
		res.MeanDistance = sum / float64(n)
	} else {
		res.MeanDistance = math.NaN()
	}

	e.frame.Store(e.world.Frame())
	e.logger.Info("Bench finished",
		log.Int("ticks", res.Ticks),
		log.Duration("sim_time", res.SimTime),
		log.Duration("wall", res.Wall),
		log.Int("rebuilds", res.Rebuilds),
		log.Float64("mean_distance", res.MeanDistance),
		log.Float32("max_speed", res.MaxSpeed))
	return res, nil
}
