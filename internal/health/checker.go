// Package health 汇总控制器链路与命令队列的健康状态，供 /health 与 /readyz 使用。
package health

import (
	"context"
	"time"
)

// Status 网关某个依赖的状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 心跳迟到或队列积压，命令仍可入队
	StatusUnhealthy Status = "unhealthy" // 控制器断开或队列不可用，/readyz 返回 503
)

// CheckResult 一次检查的结论；Details 放队列长度、最近心跳时间等现场数据
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 由控制器会话、内存队列、Redis 队列各自实现；Name 作为报告中的键
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}
