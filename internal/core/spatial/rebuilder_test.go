package spatial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/boidsim/internal/core/events/bus"
)

func TestRebuildNowPublishes(t *testing.T) {
	events := bus.New()
	got := make(chan RebuildInfo, 1)
	_, err := events.Subscribe(bus.TypeIndexRebuilt, func(e bus.Event) error {
		got <- e.Data().(RebuildInfo)
		return nil
	})
	require.NoError(t, err)

	store := NewStore()
	r := NewRebuilder(store, DefaultTreeOptions(), time.Second, events, nil)
	snap := r.RebuildNow(lineEntries(4))

	assert.Same(t, snap, store.Load())
	info := <-got
	assert.Equal(t, uint64(1), info.Generation)
	assert.Equal(t, 4, info.Entries)
}

func TestDueFiresOncePerPeriod(t *testing.T) {
	r := NewRebuilder(NewStore(), DefaultTreeOptions(), time.Hour, nil, nil)
	assert.True(t, r.Due())
	assert.False(t, r.Due())
}

func TestSubmitDoesNotBlock(t *testing.T) {
	r := NewRebuilder(NewStore(), DefaultTreeOptions(), time.Hour, nil, nil)
	assert.True(t, r.Submit(lineEntries(1)))
	assert.False(t, r.Submit(lineEntries(1)))
}

func TestRunBuildsSubmittedCaptures(t *testing.T) {
	store := NewStore()
	r := NewRebuilder(store, DefaultTreeOptions(), 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.True(t, r.Submit(lineEntries(6)))
	assert.Eventually(t, func() bool { return store.Load().Len() == 6 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, r.Due, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestOlderCaptureNeverReplacesNewer(t *testing.T) {
	store := NewStore()
	r := NewRebuilder(store, DefaultTreeOptions(), time.Hour, nil, nil)

	require.True(t, r.Submit(lineEntries(3)))
	newer := r.RebuildNow(lineEntries(5))
	require.Equal(t, 5, newer.Len())

	// The queued capture was taken before the synchronous one.
	got := r.build(<-r.requests)
	assert.Same(t, newer, got)
	assert.Same(t, newer, store.Load())
	assert.Equal(t, uint64(1), store.Swaps())
	assert.Equal(t, uint64(1), r.Stale())
}

func TestConcurrentRebuildsInstallInOrder(t *testing.T) {
	store := NewStore()
	r := NewRebuilder(store, DefaultTreeOptions(), time.Hour, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for n := 1; n <= 50; n++ {
		r.Submit(lineEntries(n))
		if n%5 == 0 {
			r.RebuildNow(lineEntries(n))
		}
	}
	assert.Equal(t, 50, store.Load().Len())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 50, store.Load().Len(), "a late asynchronous build does not roll back")
}
