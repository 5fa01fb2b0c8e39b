package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("read failed")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("write failed")
}

func TestFetch(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"1.0", "2.0"}, nil
	}

	for range 2 {
		got, err := Fetch(ctx, c, zap.NewNop(), Key("test", "pkg"), time.Hour, fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.0", "2.0"}, got)
	}
	assert.Equal(t, 1, calls)
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, nil, "k", time.Hour, func(context.Context) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestFetchWithoutCache(t *testing.T) {
	calls := 0
	for range 2 {
		_, err := Fetch(context.Background(), nil, nil, "k", time.Hour, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestFetchToleratesCacheFailures(t *testing.T) {
	got, err := Fetch(context.Background(), failingCache{}, zap.NewNop(), "k", time.Hour,
		func(context.Context) (string, error) {
			return "fresh", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestFetchDiscardsUndecodableEntry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("not json"), 0))

	got, err := Fetch(ctx, c, zap.NewNop(), "k", 0, func(context.Context) ([]string, error) {
		return []string{"1.0"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1.0"}, got)

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["1.0"]`, string(data))
}
