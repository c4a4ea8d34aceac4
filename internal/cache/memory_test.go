package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCacheExpiry(t *testing.T) {
	c := NewInMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONRoundTripAndDelete(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	type snapshot struct {
		Points uint64 `json:"points"`
	}
	require.NoError(t, SetJSON(ctx, c, AccountKey(5), snapshot{Points: 12}, 0))

	var got snapshot
	require.NoError(t, GetJSON(ctx, c, AccountKey(5), &got))
	assert.Equal(t, uint64(12), got.Points)

	require.NoError(t, c.Delete(ctx, AccountKey(5)))
	assert.ErrorIs(t, GetJSON(ctx, c, AccountKey(5), &got), ErrNotFound)
}

func TestAccountKey(t *testing.T) {
	assert.Equal(t, "loyalty:account:77", AccountKey(77))
}

func TestNewValkeyUnknownClient(t *testing.T) {
	_, err := NewValkey(context.Background(), ValkeyConfig{Client: "memcached"})
	assert.Error(t, err)
}
