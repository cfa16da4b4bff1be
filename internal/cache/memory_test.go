package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mem := NewMemory(time.Hour)
	mem.Now = func() time.Time { return now }

	require.NoError(t, mem.SetURL(ctx, "abc", "https://example.com"))

	got, err := mem.URL(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.True(t, mem.Contains("abc"))

	// Just inside the TTL the entry is still served.
	now = now.Add(time.Hour)
	_, err = mem.URL(ctx, "abc")
	require.NoError(t, err)

	// One tick past the TTL it is gone.
	now = now.Add(time.Nanosecond)
	_, err = mem.URL(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
	assert.False(t, mem.Contains("abc"))
}

func TestMemoryMissAndDelete(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(time.Hour)

	_, err := mem.URL(ctx, "nope")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, mem.SetURL(ctx, "abc", "https://example.com"))
	require.NoError(t, mem.DeleteURL(ctx, "abc"))

	_, err = mem.URL(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryClickCounter(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(time.Hour)

	n, err := mem.IncrClicks(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = mem.IncrClicks(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = mem.IncrClicks(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
