package bootstrap

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/api"
	"github.com/taoyao-code/elevator-gateway/internal/app"
	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/health"
	"github.com/taoyao-code/elevator-gateway/internal/metrics"
)

// shutdownTimeout 优雅关闭等待上限
const shutdownTimeout = 10 * time.Second

// Run 统一启动流程，收到 SIGINT/SIGTERM 后优雅关闭
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, cfg, log)
}

// RunContext 启动并阻塞到 ctx 取消
func RunContext(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting elevator gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("controller", cfg.Controller.Addr()))

	// ========== 阶段1: 指标与命令队列 ==========
	reg, appm := app.NewMetrics()
	q, err := app.NewCommandQueue(ctx, cfg, log)
	if err != nil {
		log.Error("command queue initialization failed", zap.Error(err))
		return err
	}
	defer func() { _ = q.Close() }()

	// ========== 阶段2: 控制器会话与工作循环 ==========
	svc, sess := app.NewGateway(cfg, q, appm, log)
	healthAgg := app.NewHealthAggregator(cfg, sess, q)

	// ========== 阶段3: HTTP（命令入口、健康检查、指标）==========
	readyFn := func() bool {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return healthAgg.Ready(rctx)
	}
	httpSrv := app.NewHTTPServer(cfg, metrics.Handler(reg), readyFn, log.Named("http"))
	api.RegisterCommandRoutes(httpSrv.Engine(), api.NewCommandHandler(q, log.Named("api"), appm), cfg.API, log, appm)
	health.RegisterHTTPRoutes(httpSrv.Engine(), healthAgg)

	httpErr := make(chan error, 1)
	go func() { httpErr <- httpSrv.Start() }()
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	svcDone := make(chan error, 1)
	go func() { svcDone <- svc.Run(runCtx) }()

	// ========== 阶段4: 等待关闭 ==========
	var runErr error
	svcExited := false
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, gracefully shutting down...")
	case err := <-httpErr:
		if err != nil {
			log.Error("http server error", zap.Error(err))
			runErr = err
		}
	case err := <-svcDone:
		svcExited = true
		if err != nil {
			log.Error("gateway service error", zap.Error(err))
			runErr = err
		}
	}

	cancelRun()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("http server stopped")

	if !svcExited {
		select {
		case err := <-svcDone:
			runErr = errors.Join(runErr, err)
			log.Info("gateway service stopped")
		case <-sctx.Done():
			runErr = errors.Join(runErr, errors.New("gateway service did not stop in time"))
		}
	}
	log.Info("shutdown complete")
	return runErr
}
