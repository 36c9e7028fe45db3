package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/queue"
)

// deadSuffix 无法解析的消息转入 <key>:dead
const deadSuffix = ":dead"

// CommandQueue 基于 Redis List 的命令队列：生产方 LPUSH，消费方 RPOP，先进先出。
// 允许其他进程直接向同一个 key 推送 JSON 命令。
type CommandQueue struct {
	client *Client
	key    string
	log    *zap.Logger
}

var _ queue.Queue = (*CommandQueue)(nil)

// NewCommandQueue 创建命令队列
func NewCommandQueue(client *Client, key string, log *zap.Logger) *CommandQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandQueue{client: client, key: key, log: log}
}

// Enqueue 入队
func (q *CommandQueue) Enqueue(ctx context.Context, cmd queue.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// TryDequeue 非阻塞出队；队列为空返回 ok=false。
// 无法解析的消息转入死信列表，然后继续取下一条。
func (q *CommandQueue) TryDequeue(ctx context.Context) (queue.Command, bool, error) {
	for {
		raw, err := q.client.RPop(ctx, q.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return queue.Command{}, false, nil
		}
		if err != nil {
			return queue.Command{}, false, fmt.Errorf("rpop %s: %w", q.key, err)
		}

		var cmd queue.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			q.log.Warn("malformed queued command moved to dead list",
				zap.String("key", q.key), zap.ByteString("raw", raw), zap.Error(err))
			if derr := q.client.LPush(ctx, q.key+deadSuffix, raw).Err(); derr != nil {
				q.log.Error("push dead command failed", zap.Error(derr))
			}
			continue
		}
		return cmd, true, nil
	}
}

// Notify Redis 无推送通知，由工作循环定时轮询
func (q *CommandQueue) Notify() <-chan struct{} { return nil }

// Len 队列长度
func (q *CommandQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// DeadLen 死信数量
func (q *CommandQueue) DeadLen(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key+deadSuffix).Result()
}
