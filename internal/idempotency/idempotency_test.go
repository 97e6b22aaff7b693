package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }

	_, ok, err := s.Lookup(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remember(ctx, 1, "k", 10))
	require.NoError(t, s.Remember(ctx, 1, "k", 11))
	id, ok, err := s.Lookup(ctx, 1, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)

	// keys are scoped per user
	_, ok, _ = s.Lookup(ctx, 2, "k")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok, _ = s.Lookup(ctx, 1, "k")
	assert.False(t, ok)
}

func TestOrderKey(t *testing.T) {
	assert.Equal(t, "idem:order:create:7:abc", orderKey(7, "abc"))
}

func TestRedisStore_Defaults(t *testing.T) {
	rdb := NewRedisClient("127.0.0.1:0")
	defer rdb.Close()
	s := NewRedisStore(rdb, 0)
	assert.Equal(t, TTL, s.ttl)
}
