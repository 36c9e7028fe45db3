package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/elevator-gateway/internal/storage/redis"
)

// RedisChecker Redis 队列后端健康检查
type RedisChecker struct {
	client *redisstorage.Client
	queue  *redisstorage.CommandQueue
}

// NewRedisChecker queue 可为 nil
func NewRedisChecker(client *redisstorage.Client, queue *redisstorage.CommandQueue) *RedisChecker {
	return &RedisChecker{client: client, queue: queue}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := c.client.Stats()
	utilization := 0.0
	if stats.TotalConns > 0 {
		utilization = float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
	}

	status, message := StatusHealthy, "ok"
	if utilization > 0.9 {
		status, message = StatusDegraded, "connection pool near limit"
	}

	details := map[string]any{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"timeouts":    stats.Timeouts,
		"utilization": fmt.Sprintf("%.1f%%", utilization*100),
	}
	if c.queue != nil {
		if n, err := c.queue.Len(ctx); err == nil {
			details["queue_len"] = n
		}
		if n, err := c.queue.DeadLen(ctx); err == nil {
			details["dead_len"] = n
			if n > 0 && status == StatusHealthy {
				status, message = StatusDegraded, "malformed commands in dead list"
			}
		}
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
