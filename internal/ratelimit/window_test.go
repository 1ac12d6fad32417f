package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowAllowsUpToLimit(t *testing.T) {
	w := NewSlidingWindow(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := w.Allow(ctx, "case-1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d should be allowed", i+1)
	}

	ok, err := w.Allow(ctx, "case-1")
	require.NoError(t, err)
	assert.False(t, ok, "limit exceeded")

	ok, err = w.Allow(ctx, "case-2")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")
}

func TestSlidingWindowSlides(t *testing.T) {
	w := NewSlidingWindow(2, time.Minute)
	ctx := context.Background()

	now := time.Now()
	w.SetNowFunc(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		ok, err := w.Allow(ctx, "case-1")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := w.Allow(ctx, "case-1")
	require.NoError(t, err)
	require.False(t, ok)

	w.SetNowFunc(func() time.Time { return now.Add(61 * time.Second) })

	ok, err = w.Allow(ctx, "case-1")
	require.NoError(t, err)
	assert.True(t, ok, "old entries fall out of the window")
}

func TestSlidingWindowPurge(t *testing.T) {
	w := NewSlidingWindow(5, time.Minute)
	ctx := context.Background()

	now := time.Now()
	w.SetNowFunc(func() time.Time { return now })

	_, err := w.Allow(ctx, "stale")
	require.NoError(t, err)

	w.SetNowFunc(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = w.Allow(ctx, "fresh")
	require.NoError(t, err)

	require.NoError(t, w.Purge(ctx, time.Hour))

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.NotContains(t, w.entries, "stale")
	assert.Contains(t, w.entries, "fresh")
}
