package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/queue"
	redisstorage "github.com/taoyao-code/elevator-gateway/internal/storage/redis"
)

// CommandQueue 按 queue.backend 创建的命令队列及其附属资源
type CommandQueue struct {
	queue.Queue
	Memory *queue.Memory              // backend=memory 时非 nil
	Redis  *redisstorage.Client       // backend=redis 时非 nil
	RedisQ *redisstorage.CommandQueue // backend=redis 时非 nil
}

// Close 释放 Redis 连接
func (c *CommandQueue) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}

// NewCommandQueue 创建命令队列
func NewCommandQueue(ctx context.Context, cfg *cfgpkg.Config, logger *zap.Logger) (*CommandQueue, error) {
	if cfg.Queue.Backend != "redis" {
		mem := queue.NewMemory(cfg.Queue.Capacity)
		logger.Info("using memory command queue", zap.Int("capacity", cfg.Queue.Capacity))
		return &CommandQueue{Queue: mem, Memory: mem}, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	rq := redisstorage.NewCommandQueue(client, cfg.Queue.RedisKey, logger)
	logger.Info("using redis command queue",
		zap.String("addr", cfg.Redis.Addr),
		zap.String("key", cfg.Queue.RedisKey),
		zap.Int("pool_size", cfg.Redis.PoolSize))
	return &CommandQueue{Queue: rq, Redis: client, RedisQ: rq}, nil
}
