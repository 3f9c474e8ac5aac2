package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/boidsim/internal/config"
	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/observability/log"
	"github.com/zeusync/boidsim/internal/core/spatial"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/steering"
	"github.com/zeusync/boidsim/internal/core/world"
	"github.com/zeusync/boidsim/internal/engine"
)

// ConfigPath is the configuration file to load; empty means defaults.
type ConfigPath string

var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideEventBus,
	spatial.NewStore,
	ProvideRebuilder,
	ProvideManager,
	ProvideWorld,
	engine.New,
)

func ProvideConfig(path ConfigPath) (config.Config, error) {
	return config.Load(string(path))
}

// ProvideLogger builds the process logger; the cleanup flushes it.
func ProvideLogger(cfg config.Config) (log.Log, func()) {
	logger := log.New(cfg.LogLevel(), log.Format(cfg.Log.Format))
	return logger, func() { _ = logger.Sync() }
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideRebuilder(cfg config.Config, store *spatial.Store, events bus.EventBus, logger log.Log) *spatial.Rebuilder {
	opts := spatial.TreeOptions{
		MinChildren:    cfg.Spatial.MinChildren,
		MaxChildren:    cfg.Spatial.MaxChildren,
		PointTolerance: cfg.Spatial.PointTolerance,
	}
	return spatial.NewRebuilder(store, opts, cfg.Spatial.RebuildPeriod, events, logger)
}

// ProvideManager creates the systems manager with the steering pipeline registered.
func ProvideManager(cfg config.Config, logger log.Log) (*systems.Manager, error) {
	m, err := systems.NewManager(cfg.Simulation.FixedStep, logger)
	if err != nil {
		return nil, err
	}
	if err = steering.Register(m, steering.ParamsFromConfig(cfg.Steering), cfg.Simulation.Workers); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideWorld(cfg config.Config, m *systems.Manager, store *spatial.Store, rb *spatial.Rebuilder, events bus.EventBus, logger log.Log) (*world.World, error) {
	return world.New(m, store, rb,
		world.WithSelectionHeight(cfg.Scene.SelectionHeight),
		world.WithFormationSpacing(cfg.Scene.FormationSpacing),
		world.WithEvents(events),
		world.WithLogger(logger),
	)
}
