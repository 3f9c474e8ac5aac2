package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/boidsim/internal/core/observability/log"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Config is the complete runtime configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	Steering   SteeringConfig   `yaml:"steering" toml:"steering"`
	Spatial    SpatialConfig    `yaml:"spatial" toml:"spatial"`
	Scene      SceneConfig      `yaml:"scene" toml:"scene"`
	Feed       FeedConfig       `yaml:"feed" toml:"feed"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// SimulationConfig drives the tick loop.
type SimulationConfig struct {
	// TickInterval is the target wall time between ticks; actual Δt is measured.
	TickInterval time.Duration `yaml:"tick_interval" toml:"tick_interval"`
	// FixedStep is the period of the target-seeking controller.
	FixedStep time.Duration `yaml:"fixed_step" toml:"fixed_step"`
	// MaxFrameTime caps a single measured Δt so a stalled process does not teleport agents.
	MaxFrameTime  time.Duration `yaml:"max_frame_time" toml:"max_frame_time"`
	StatsInterval time.Duration `yaml:"stats_interval" toml:"stats_interval"`
	Workers       int           `yaml:"workers" toml:"workers"`
	Seed          uint64        `yaml:"seed" toml:"seed"`
}

// SteeringConfig holds the tunable physics of the pipeline.
type SteeringConfig struct {
	MaxVelocity      float32       `yaml:"max_velocity" toml:"max_velocity"`
	MaxAcceleration  float32       `yaml:"max_acceleration" toml:"max_acceleration"`
	DecelerationTime time.Duration `yaml:"deceleration_time" toml:"deceleration_time"`
	TargetSpeedDecay float32       `yaml:"target_speed_decay" toml:"target_speed_decay"`
	BrownianVelocity float32       `yaml:"brownian_velocity" toml:"brownian_velocity"`

	RepelCoef            float32 `yaml:"repel_coef" toml:"repel_coef"`
	MaxRepelAcceleration float32 `yaml:"max_repel_acceleration" toml:"max_repel_acceleration"`
	MinSeparation        float32 `yaml:"min_separation" toml:"min_separation"`
	PushChannel          bool    `yaml:"push_channel" toml:"push_channel"`
	PushGain             float32 `yaml:"push_gain" toml:"push_gain"`

	InteractionRadius float32 `yaml:"interaction_radius" toml:"interaction_radius"`

	BobAmplitude float32 `yaml:"bob_amplitude" toml:"bob_amplitude"`
	BobFreqCoef  float32 `yaml:"bob_freq_coef" toml:"bob_freq_coef"`
	BobFreqMin   float32 `yaml:"bob_freq_min" toml:"bob_freq_min"`
}

// SpatialConfig tunes the spatial index.
type SpatialConfig struct {
	RebuildPeriod  time.Duration `yaml:"rebuild_period" toml:"rebuild_period"`
	MinChildren    int           `yaml:"min_children" toml:"min_children"`
	MaxChildren    int           `yaml:"max_children" toml:"max_children"`
	PointTolerance float64       `yaml:"point_tolerance" toml:"point_tolerance"`
}

// SceneConfig describes the initial population.
type SceneConfig struct {
	Rows           int        `yaml:"rows" toml:"rows"`
	Cols           int        `yaml:"cols" toml:"cols"`
	Spacing        float32    `yaml:"spacing" toml:"spacing"`
	SpawnExtent    float32    `yaml:"spawn_extent" toml:"spawn_extent"`
	PhaseSpread    float32    `yaml:"phase_spread" toml:"phase_spread"`
	Obstacles      int        `yaml:"obstacles" toml:"obstacles"`
	ObstacleExtent float32    `yaml:"obstacle_extent" toml:"obstacle_extent"`
	ObstacleHeight float32    `yaml:"obstacle_height" toml:"obstacle_height"`
	ObstacleNormal [3]float32 `yaml:"obstacle_normal" toml:"obstacle_normal"`
	// SelectionHeight is the vertical half-extent of a box selection.
	SelectionHeight float32 `yaml:"selection_height" toml:"selection_height"`
	// FormationSpacing separates agents that receive the same move order.
	FormationSpacing float32 `yaml:"formation_spacing" toml:"formation_spacing"`
}

// FeedConfig configures the optional renderer feed.
type FeedConfig struct {
	Enabled    bool          `yaml:"enabled" toml:"enabled"`
	ListenAddr string        `yaml:"listen_addr" toml:"listen_addr"`
	Path       string        `yaml:"path" toml:"path"`
	Encoding   string        `yaml:"encoding" toml:"encoding"`
	Interval   time.Duration `yaml:"interval" toml:"interval"`
	// WriteTimeout bounds a single frame write to one client.
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration the simulation was tuned with.
func Default() Config {
	return Config{
		Simulation: SimulationConfig{
			TickInterval:  16 * time.Millisecond,
			FixedStep:     15625 * time.Microsecond,
			MaxFrameTime:  100 * time.Millisecond,
			StatsInterval: 5 * time.Second,
			Workers:       0,
			Seed:          1,
		},
		Steering: SteeringConfig{
			MaxVelocity:          20,
			MaxAcceleration:      5,
			DecelerationTime:     time.Second,
			TargetSpeedDecay:     0.99,
			BrownianVelocity:     0.1,
			RepelCoef:            0.05,
			MaxRepelAcceleration: 2.5,
			MinSeparation:        0.01,
			PushChannel:          false,
			PushGain:             1,
			InteractionRadius:    1,
			BobAmplitude:         0.1,
			BobFreqCoef:          0.18,
			BobFreqMin:           0.05,
		},
		Spatial: SpatialConfig{
			RebuildPeriod:  time.Second,
			MinChildren:    25,
			MaxChildren:    50,
			PointTolerance: 1e-3,
		},
		Scene: SceneConfig{
			Rows:             99,
			Cols:             99,
			Spacing:          1,
			SpawnExtent:      10,
			PhaseSpread:      20,
			Obstacles:        99,
			ObstacleExtent:   100,
			ObstacleHeight:   0,
			ObstacleNormal:   [3]float32{1, 0, 0},
			SelectionHeight:  1,
			FormationSpacing: 1,
		},
		Feed: FeedConfig{
			Enabled:      false,
			ListenAddr:   "127.0.0.1:8080",
			Path:         "/ws",
			Encoding:     "json",
			Interval:     50 * time.Millisecond,
			WriteTimeout: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML or TOML file over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode toml %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := c.Simulation
	check(s.TickInterval > 0, "simulation.tick_interval must be positive")
	check(s.FixedStep > 0, "simulation.fixed_step must be positive")
	check(s.MaxFrameTime >= s.FixedStep, "simulation.max_frame_time must be at least fixed_step")
	check(s.Workers >= 0, "simulation.workers must not be negative")

	st := c.Steering
	check(st.MaxVelocity > 0, "steering.max_velocity must be positive")
	check(st.MaxAcceleration > 0, "steering.max_acceleration must be positive")
	check(st.DecelerationTime > 0, "steering.deceleration_time must be positive")
	check(st.TargetSpeedDecay > 0 && st.TargetSpeedDecay <= 1, "steering.target_speed_decay must be in (0, 1]")
	check(st.BrownianVelocity >= 0, "steering.brownian_velocity must not be negative")
	check(st.RepelCoef >= 0, "steering.repel_coef must not be negative")
	check(st.MaxRepelAcceleration >= 0, "steering.max_repel_acceleration must not be negative")
	check(st.MinSeparation > 0, "steering.min_separation must be positive")
	check(st.InteractionRadius > 0, "steering.interaction_radius must be positive")
	check(st.BobFreqMin >= 0, "steering.bob_freq_min must not be negative")

	sp := c.Spatial
	check(sp.RebuildPeriod > 0, "spatial.rebuild_period must be positive")
	check(sp.MinChildren > 0 && sp.MaxChildren >= 2*sp.MinChildren-1,
		"spatial: need 0 < min_children and max_children >= 2*min_children-1 (got %d/%d)", sp.MinChildren, sp.MaxChildren)
	check(sp.PointTolerance > 0, "spatial.point_tolerance must be positive")

	sc := c.Scene
	check(sc.Rows >= 0 && sc.Cols >= 0 && sc.Obstacles >= 0, "scene counts must not be negative")
	check(sc.ObstacleNormal != [3]float32{}, "scene.obstacle_normal must be non-zero")
	check(sc.FormationSpacing > 0, "scene.formation_spacing must be positive")

	if c.Feed.Enabled {
		check(c.Feed.ListenAddr != "", "feed.listen_addr is required when the feed is enabled")
		check(strings.HasPrefix(c.Feed.Path, "/"), "feed.path must start with /")
		check(c.Feed.Encoding == "json" || c.Feed.Encoding == "msgpack", "feed.encoding must be json or msgpack")
		check(c.Feed.Interval > 0, "feed.interval must be positive")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	check(c.Log.Format == "json" || c.Log.Format == "console", "log.format must be json or console")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LogLevel returns the parsed log level, defaulting to info.
func (c Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}
