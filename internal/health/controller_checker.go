package health

import (
	"context"
	"time"

	"github.com/taoyao-code/elevator-gateway/internal/session"
)

// LinkState 控制器会话的只读视图；*session.Session 满足该接口
type LinkState interface {
	State() session.State
	LastHeartbeat() time.Time
}

// ControllerChecker 控制器链路检查：未连接为 unhealthy，心跳超时为 degraded
type ControllerChecker struct {
	link       LinkState
	addr       string
	staleAfter time.Duration
	now        func() time.Time
}

// NewControllerChecker staleAfter<=0 时不检查心跳间隔
func NewControllerChecker(link LinkState, addr string, staleAfter time.Duration) *ControllerChecker {
	return &ControllerChecker{link: link, addr: addr, staleAfter: staleAfter, now: time.Now}
}

func (c *ControllerChecker) Name() string { return "controller" }

func (c *ControllerChecker) Check(_ context.Context) CheckResult {
	start := c.now()
	state := c.link.State()
	last := c.link.LastHeartbeat()

	details := map[string]any{
		"addr":  c.addr,
		"state": state.String(),
	}
	if !last.IsZero() {
		details["last_heartbeat"] = last
		details["heartbeat_age"] = start.Sub(last).String()
	}

	res := CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
	switch {
	case state != session.StateConnected:
		res.Status = StatusUnhealthy
		res.Message = "controller " + state.String()
	case c.staleAfter > 0 && !last.IsZero() && start.Sub(last) > c.staleAfter:
		res.Status = StatusDegraded
		res.Message = "heartbeat overdue"
	}
	res.Latency = c.now().Sub(start)
	return res
}
