package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/dispatcher"
	"github.com/taoyao-code/elevator-gateway/internal/gateway"
	"github.com/taoyao-code/elevator-gateway/internal/metrics"
	"github.com/taoyao-code/elevator-gateway/internal/queue"
	"github.com/taoyao-code/elevator-gateway/internal/session"
)

// NewGateway 构造控制器会话、下发器与工作循环
func NewGateway(cfg *cfgpkg.Config, q queue.Queue, appm *metrics.AppMetrics, logger *zap.Logger) (*gateway.Service, *session.Session) {
	sess := session.New(session.ConfigFrom(cfg.Controller),
		session.WithLogger(logger.Named("session")),
		session.WithMetrics(appm),
		session.WithStateHook(func(from, to session.State) {
			logger.Debug("session state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		}),
	)
	disp := dispatcher.New(sess,
		dispatcher.WithLogger(logger.Named("dispatcher")),
		dispatcher.WithMetrics(appm),
		dispatcher.WithRetryBuffer(cfg.Dispatcher.RetryBuffer),
	)
	svc := gateway.NewService(sess, disp, q, cfg.Service.PollInterval, logger.Named("gateway"))
	return svc, sess
}
