package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers returns n when positive, otherwise GOMAXPROCS.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// Chunks splits [0, n) into at most parts contiguous half-open ranges of near-equal size.
func Chunks(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([][2]int, 0, parts)
	size, rest := n/parts, n%parts
	lo := 0
	for p := 0; p < parts; p++ {
		hi := lo + size
		if p < rest {
			hi++
		}
		out = append(out, [2]int{lo, hi})
		lo = hi
	}
	return out
}

// ParallelChunks runs action once per chunk of [0, n) on its own goroutine.
// It waits for all chunks and returns the first error encountered. Chunks not
// yet started when ctx is cancelled are skipped.
func ParallelChunks(ctx context.Context, n, workers int, action func(lo, hi int) error) error {
	chunks := Chunks(n, Workers(workers))
	if len(chunks) == 1 {
		return action(chunks[0][0], chunks[0][1])
	}

	errGroup, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		errGroup.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return action(c[0], c[1])
		})
	}
	return errGroup.Wait()
}

// ParallelFor applies action to every index in [0, n), fanning out over workers goroutines.
// Each index is visited exactly once; action must only write state owned by that index.
func ParallelFor(ctx context.Context, n, workers int, action func(i int)) error {
	return ParallelChunks(ctx, n, workers, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			action(i)
		}
		return nil
	})
}
