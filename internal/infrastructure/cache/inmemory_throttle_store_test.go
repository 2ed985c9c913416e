package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryThrottleStore(t *testing.T) {
	store := NewInMemoryThrottleStore()
	ctx := context.Background()

	t.Run("no cooldown by default", func(t *testing.T) {
		_, active, err := store.Cooldown(ctx, "plan-1")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("active cooldown reports remaining time", func(t *testing.T) {
		require.NoError(t, store.SetCooldown(ctx, "plan-1", time.Minute))
		remaining, active, err := store.Cooldown(ctx, "plan-1")
		require.NoError(t, err)
		assert.True(t, active)
		assert.Greater(t, remaining, 50*time.Second)
	})

	t.Run("expired cooldown clears", func(t *testing.T) {
		require.NoError(t, store.SetCooldown(ctx, "plan-2", time.Millisecond))
		time.Sleep(5 * time.Millisecond)
		_, active, err := store.Cooldown(ctx, "plan-2")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("non-positive cooldown is ignored", func(t *testing.T) {
		require.NoError(t, store.SetCooldown(ctx, "plan-3", 0))
		_, active, err := store.Cooldown(ctx, "plan-3")
		require.NoError(t, err)
		assert.False(t, active)
	})
}
