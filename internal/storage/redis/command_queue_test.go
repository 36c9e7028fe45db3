package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/queue"
)

// newTestQueue 需要真实 Redis：设置 ELEVATOR_TEST_REDIS_ADDR 才运行
func newTestQueue(t *testing.T) (*CommandQueue, *Client) {
	t.Helper()
	addr := os.Getenv("ELEVATOR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ELEVATOR_TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), cfgpkg.RedisConfig{
		Addr:        addr,
		PoolSize:    2,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)

	key := "elevator:test:" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(context.Background(), key, key+deadSuffix)
		_ = client.Close()
	})
	return NewCommandQueue(client, key, nil), client
}

func TestCommandQueue_FIFO(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, ok, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, q.Enqueue(ctx, queue.OpenDoor(1)))
	require.NoError(t, q.Enqueue(ctx, queue.DeleteCard(7)))
	require.NoError(t, q.Enqueue(ctx, queue.AddCard(queue.CardInfo{CardID: 1, CardNumber: 2, Floors: 3, Name: "张三"})))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	cmd, ok, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, queue.OpenDoor(1), cmd)

	cmd, ok, err = q.TryDequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, queue.DeleteCard(7), cmd)

	cmd, ok, err = q.TryDequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, cmd.Data)
	assert.Equal(t, "张三", cmd.Data.Name)

	assert.Nil(t, q.Notify())
}

func TestCommandQueue_ExternalProducerAndDeadLetter(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, client.LPush(ctx, q.key, `not json`).Err())
	require.NoError(t, client.LPush(ctx, q.key, `{"action":"open_door","door":5}`).Err())

	cmd, ok, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, queue.ActionOpenDoor, cmd.Action)
	assert.Equal(t, 5, cmd.Door)

	dead, err := q.DeadLen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)
}
