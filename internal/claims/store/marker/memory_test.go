package marker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafeteria/internal/claims/models"
)

func TestInMemoryMarker(t *testing.T) {
	ctx := context.Background()
	day := "2026-03-10"

	t.Run("unmarked claim reads as not claimed", func(t *testing.T) {
		m := NewInMemory()
		claimed, err := m.AlreadyClaimed(ctx, "1001", models.ServiceLunch, day)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("marked claim reads as claimed", func(t *testing.T) {
		m := NewInMemory()
		require.NoError(t, m.MarkClaimed(ctx, "1001", models.ServiceLunch, day, time.Hour))

		claimed, err := m.AlreadyClaimed(ctx, "1001", models.ServiceLunch, day)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("marker is scoped to service and day", func(t *testing.T) {
		m := NewInMemory()
		require.NoError(t, m.MarkClaimed(ctx, "1001", models.ServiceLunch, day, time.Hour))

		claimed, err := m.AlreadyClaimed(ctx, "1001", models.ServiceSnack, day)
		require.NoError(t, err)
		assert.False(t, claimed)

		claimed, err = m.AlreadyClaimed(ctx, "1001", models.ServiceLunch, "2026-03-11")
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("expired marker reads as not claimed", func(t *testing.T) {
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
		m := NewInMemory(WithClock(func() time.Time { return now }))
		require.NoError(t, m.MarkClaimed(ctx, "1001", models.ServiceLunch, day, time.Hour))

		now = now.Add(2 * time.Hour)
		claimed, err := m.AlreadyClaimed(ctx, "1001", models.ServiceLunch, day)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}
