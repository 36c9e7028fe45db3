package health

import (
	"context"
	"fmt"
	"time"
)

// Backlog 内存队列积压视图；*queue.Memory 满足该接口
type Backlog interface {
	Len() int
	Cap() int
}

// QueueChecker 内存命令队列积压检查
type QueueChecker struct {
	q Backlog
}

func NewQueueChecker(q Backlog) *QueueChecker { return &QueueChecker{q: q} }

func (c *QueueChecker) Name() string { return "queue" }

func (c *QueueChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	n, capacity := c.q.Len(), c.q.Cap()
	details := map[string]any{"backend": "memory", "len": n, "cap": capacity}
	if capacity <= 0 {
		return CheckResult{Status: StatusHealthy, Message: "unbounded", Details: details, Latency: time.Since(start)}
	}

	utilization := float64(n) / float64(capacity)
	details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)

	res := CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
	switch {
	case n >= capacity:
		res.Status = StatusUnhealthy
		res.Message = "queue full"
	case utilization > 0.8:
		res.Status = StatusDegraded
		res.Message = "queue backlog high"
	}
	res.Latency = time.Since(start)
	return res
}
