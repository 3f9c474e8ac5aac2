package scene

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/config"
	"github.com/zeusync/boidsim/internal/core/models"
)

// Spawner is the part of the world a scene populates.
type Spawner interface {
	SpawnAgent(position mgl32.Vec3, opts ...models.AgentOption) (models.EntityID, error)
	SpawnObstacle(position, normal mgl32.Vec3) (models.EntityID, error)
}

// Summary counts what Populate created.
type Summary struct {
	Agents    int
	Obstacles int
}

// Populate spawns a rows×cols grid of boids, each heading for its own grid
// cell from a random start, and the configured obstacles. The same seed
// always yields the same scene.
func Populate(w Spawner, cfg config.SceneConfig, seed uint64) (Summary, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var sum Summary

	for i := 0; i < cfg.Rows; i++ {
		for j := 0; j < cfg.Cols; j++ {
			target := GridTarget(i, j, cfg.Rows, cfg.Cols, cfg.Spacing)
			start := mgl32.Vec3{
				uniform(rng, cfg.SpawnExtent),
				0,
				uniform(rng, cfg.SpawnExtent),
			}
			// Agent ids are assigned by the world; the phase hashes the grid slot.
			phase := PhaseOffset(seed, uint64(i*cfg.Cols+j), cfg.PhaseSpread)
			if _, err := w.SpawnAgent(start, models.WithTarget(target), models.WithBobPhase(phase)); err != nil {
				return sum, fmt.Errorf("populate agent (%d,%d): %w", i, j, err)
			}
			sum.Agents++
		}
	}

	normal := mgl32.Vec3(cfg.ObstacleNormal)
	for k := 0; k < cfg.Obstacles; k++ {
		pos := mgl32.Vec3{
			uniform(rng, cfg.ObstacleExtent),
			cfg.ObstacleHeight,
			uniform(rng, cfg.ObstacleExtent),
		}
		if _, err := w.SpawnObstacle(pos, normal); err != nil {
			return sum, fmt.Errorf("populate obstacle %d: %w", k, err)
		}
		sum.Obstacles++
	}
	return sum, nil
}

// GridTarget is the target of the boid in row i, column j.
func GridTarget(i, j, rows, cols int, spacing float32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(i-rows/2) * spacing,
		0,
		float32(j-cols/2) * spacing,
	}
}

// PhaseOffset maps (seed, key) to a bob phase in [-spread, spread).
func PhaseOffset(seed, key uint64, spread float32) float32 {
	if spread <= 0 {
		return 0
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	binary.LittleEndian.PutUint64(buf[8:], key)
	unit := float32(xxhash.Sum64(buf[:])>>40) / float32(1<<24)
	return (2*unit - 1) * spread
}

func uniform(rng *rand.Rand, extent float32) float32 {
	if extent <= 0 {
		return 0
	}
	return (2*rng.Float32() - 1) * extent
}
