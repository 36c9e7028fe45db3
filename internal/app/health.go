package app

import (
	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/health"
	"github.com/taoyao-code/elevator-gateway/internal/session"
)

// NewHealthAggregator 控制器链路 + 队列后端
func NewHealthAggregator(cfg *cfgpkg.Config, sess *session.Session, q *CommandQueue) *health.Aggregator {
	agg := health.NewAggregator(
		health.NewControllerChecker(sess, cfg.Controller.Addr(), cfg.Controller.HeartbeatStale),
	)
	switch {
	case q.Memory != nil:
		agg.AddChecker(health.NewQueueChecker(q.Memory))
	case q.Redis != nil:
		agg.AddChecker(health.NewRedisChecker(q.Redis, q.RedisQ))
	}
	return agg
}
