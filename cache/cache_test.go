package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plcvisualizer/models"
	"plcvisualizer/services"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, New(client, "test:", zap.NewNop())
}

func TestSnapshot(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	_, err := c.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	params := []models.Parameter{
		{ID: "p1", Name: "Boiler temp", Value: 72.5, Status: models.StatusNormal},
		{ID: "p2", Name: "Line pressure", Value: 9.5, Status: models.StatusAlarm},
	}
	require.NoError(t, c.SaveSnapshot(ctx, params))
	assert.True(t, mr.Exists("test:snapshot"))

	loaded, err := c.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Line pressure", loaded[1].Name)
	assert.Equal(t, models.StatusAlarm, loaded[1].Status)

	require.NoError(t, c.SaveSnapshot(ctx, nil))
	loaded, err = c.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestPendingWrites(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	queued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.QueueWrite(ctx, services.PendingWrite{
		Op:        services.WriteCreate,
		Parameter: &models.Parameter{ID: "p1", Name: "Flow"},
		QueuedAt:  queued,
	}))
	require.NoError(t, c.QueueWrite(ctx, services.PendingWrite{Op: services.WriteDelete, ID: "p2", QueuedAt: queued}))

	_, err := mr.Lpush("test:pending_writes", "not json")
	require.NoError(t, err)

	writes, err := c.PendingWrites(ctx)
	require.NoError(t, err)
	require.Len(t, writes, 3)
	assert.Empty(t, writes[0].Op)
	assert.Equal(t, services.WriteCreate, writes[1].Op)
	assert.Equal(t, "Flow", writes[1].Parameter.Name)
	assert.Equal(t, "p2", writes[2].ID)
	assert.True(t, queued.Equal(writes[2].QueuedAt))

	require.NoError(t, c.DropPendingWrites(ctx, 0))
	writes, err = c.PendingWrites(ctx)
	require.NoError(t, err)
	assert.Len(t, writes, 3)

	require.NoError(t, c.DropPendingWrites(ctx, 3))
	writes, err = c.PendingWrites(ctx)
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestDropPendingWrites_KeepsLaterWrites(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.QueueWrite(ctx, services.PendingWrite{Op: services.WriteDelete, ID: "p1"}))
	read, err := c.PendingWrites(ctx)
	require.NoError(t, err)

	require.NoError(t, c.QueueWrite(ctx, services.PendingWrite{Op: services.WriteDelete, ID: "p2"}))
	require.NoError(t, c.DropPendingWrites(ctx, len(read)))

	writes, err := c.PendingWrites(ctx)
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Equal(t, "p2", writes[0].ID)
}

func TestConnectionSettings(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	_, err := c.GetConnectionSettings(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	s := models.DefaultConnectionSettings()
	s.Protocol = models.ProtocolMQTT
	s.Topic = "plant/line1/#"
	require.NoError(t, c.SaveConnectionSettings(ctx, s))

	got, err := c.GetConnectionSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, *got)
}

func TestCacheDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	c := New(client, "test:", nil)

	err := c.SaveSnapshot(context.Background(), []models.Parameter{{ID: "p1"}})
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
