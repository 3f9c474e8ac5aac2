package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksCoverRange(t *testing.T) {
	for _, tc := range []struct{ n, parts int }{{10, 3}, {3, 8}, {1, 1}, {100, 7}, {5, 0}} {
		chunks := Chunks(tc.n, tc.parts)
		next := 0
		for _, c := range chunks {
			assert.Equal(t, next, c[0])
			assert.Greater(t, c[1], c[0])
			next = c[1]
		}
		assert.Equal(t, tc.n, next)
	}
	assert.Nil(t, Chunks(0, 4))
}

func TestParallelForVisitsEachIndexOnce(t *testing.T) {
	const n = 10_000
	visits := make([]int32, n)
	err := ParallelFor(context.Background(), n, 8, func(i int) {
		atomic.AddInt32(&visits[i], 1)
	})
	require.NoError(t, err)
	for i, v := range visits {
		if v != 1 {
			t.Fatalf("index %d visited %d times", i, v)
		}
	}
}

func TestParallelChunksReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := ParallelChunks(context.Background(), 100, 4, func(lo, hi int) error {
		if lo == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallelChunksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int32
	err := ParallelChunks(ctx, 100, 4, func(lo, hi int) error {
		ran.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran.Load())
}

func TestParallelForEmpty(t *testing.T) {
	assert.NoError(t, ParallelFor(context.Background(), 0, 4, func(int) { t.Fatal("called") }))
}
