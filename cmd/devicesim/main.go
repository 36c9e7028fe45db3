package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/devicesim"
	"github.com/taoyao-code/elevator-gateway/internal/logging"
)

func main() {
	var (
		addr      = flag.String("addr", ":60000", "监听地址")
		heartbeat = flag.Duration("heartbeat", 10*time.Second, "心跳间隔")
		failDoors = flag.String("fail-doors", "", "开门失败的门号，逗号分隔")
		level     = flag.String("log-level", "info", "日志级别")
	)
	flag.Parse()

	logger, err := logging.InitLogger(cfgpkg.LoggingConfig{Level: *level, Format: "console"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	fails := map[byte]bool{}
	for _, s := range strings.Split(*failDoors, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 255 {
			logger.Fatal("invalid -fail-doors entry", zap.String("value", s))
		}
		fails[byte(n)] = true
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listen failed", zap.String("addr", *addr), zap.Error(err))
	}
	logger.Info("device simulator listening", zap.String("addr", ln.Addr().String()), zap.Duration("heartbeat", *heartbeat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := devicesim.New(devicesim.Config{HeartbeatInterval: *heartbeat, FailDoors: fails}, logger, nil)
	if err := sim.Serve(ctx, ln); err != nil {
		logger.Error("simulator stopped", zap.Error(err))
		os.Exit(1)
	}
}
