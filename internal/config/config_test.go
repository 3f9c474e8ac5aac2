package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, float32(20), cfg.Steering.MaxVelocity)
	assert.Equal(t, float32(5), cfg.Steering.MaxAcceleration)
	assert.Equal(t, time.Second, cfg.Steering.DecelerationTime)
	assert.Equal(t, time.Second, cfg.Spatial.RebuildPeriod)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "sim.yaml", `
steering:
  repel_coef: 2000
  interaction_radius: 4.5
  push_channel: true
spatial:
  rebuild_period: 250ms
scene:
  rows: 3
  obstacle_normal: [0, 0, 1]
log:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float32(2000), cfg.Steering.RepelCoef)
	assert.Equal(t, float32(4.5), cfg.Steering.InteractionRadius)
	assert.True(t, cfg.Steering.PushChannel)
	assert.Equal(t, 250*time.Millisecond, cfg.Spatial.RebuildPeriod)
	assert.Equal(t, 3, cfg.Scene.Rows)
	assert.Equal(t, 99, cfg.Scene.Cols, "unset fields keep defaults")
	assert.Equal(t, [3]float32{0, 0, 1}, cfg.Scene.ObstacleNormal)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "sim.toml", `
[simulation]
fixed_step = "10ms"
seed = 42

[feed]
enabled = true
encoding = "msgpack"
interval = "100ms"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Simulation.FixedStep)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, "msgpack", cfg.Feed.Encoding)
	assert.Equal(t, 100*time.Millisecond, cfg.Feed.Interval)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "sim.json", `{}`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Steering.MaxVelocity = 0
	cfg.Steering.MinSeparation = 0
	cfg.Log.Level = "shout"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "max_velocity")
	assert.Contains(t, err.Error(), "min_separation")
	assert.Contains(t, err.Error(), "shout")
}

func TestValidateFeedOnlyWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Feed.Encoding = "xml"
	assert.NoError(t, cfg.Validate())

	cfg.Feed.Enabled = true
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "boidsim.yaml"))
	require.NoError(t, err)

	want := Default()
	want.Feed.Enabled = true
	want.Log.Format = "console"
	assert.Equal(t, want, cfg)
}
