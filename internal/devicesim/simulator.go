// Package devicesim 梯控控制器模拟器：主动发心跳，对开门/加卡/删卡回 0x06 应答。
package devicesim

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/protocol/elevator"
)

// Config 模拟器参数
type Config struct {
	HeartbeatInterval time.Duration
	// FailDoors 这些门的开门请求回 0x15
	FailDoors map[byte]bool
}

// Simulator 一次只服务一个网关连接
type Simulator struct {
	cfg     Config
	log     *zap.Logger
	onFrame func(*elevator.Frame)
}

// New 创建模拟器；onFrame 可为 nil，收到网关每一帧时回调
func New(cfg Config, log *zap.Logger, onFrame func(*elevator.Frame)) *Simulator {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{cfg: cfg, log: log, onFrame: onFrame}
}

// Serve 逐个接受连接直到 ctx 取消或 listener 关闭
func (s *Simulator) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.log.Info("gateway connected", zap.String("remote", conn.RemoteAddr().String()))
		s.handle(ctx, conn)
		s.log.Info("gateway disconnected", zap.String("remote", conn.RemoteAddr().String()))
	}
}

func (s *Simulator) handle(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	var mu sync.Mutex
	write := func(b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := conn.Write(b)
		return err
	}

	go func() {
		t := time.NewTicker(s.cfg.HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-t.C:
				if err := write(elevator.Encode(elevator.CmdHeartbeat, elevator.DefaultAddress, 0, nil)); err != nil {
					cancel()
					return
				}
				s.log.Debug("heartbeat sent")
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		frames, derr := elevator.DecodeAll(buf[:n])
		for _, fr := range frames {
			s.dispatch(fr, write)
		}
		if derr != nil {
			s.log.Warn("malformed frame from gateway", zap.Binary("raw", buf[:n]), zap.Error(derr))
		}
	}
}

func (s *Simulator) dispatch(fr *elevator.Frame, write func([]byte) error) {
	if s.onFrame != nil {
		s.onFrame(fr)
	}
	switch fr.Cmd {
	case elevator.CmdHeartbeat:
		s.log.Debug("heartbeat reply received", zap.Binary("data", fr.Data))
		return
	case elevator.CmdOpenDoor:
		ok := !s.cfg.FailDoors[fr.Door]
		s.log.Info("open door", zap.Uint8("door", fr.Door), zap.Bool("ok", ok))
		_ = write(elevator.BuildAck(fr.Cmd, fr.Door, ok).Frame())
	case elevator.CmdAddCardExt:
		rec, err := elevator.ParseCardRecord(fr.Data)
		if err != nil {
			s.log.Warn("bad card record", zap.Error(err))
			_ = write(elevator.BuildAck(fr.Cmd, fr.Door, false).Frame())
			return
		}
		s.log.Info("add card", zap.Int64("card_id", rec.CardID), zap.Int64("card_number", rec.CardNumber),
			zap.Uint64("floors", rec.Floors), zap.String("name", rec.Name))
		_ = write(elevator.BuildAck(fr.Cmd, fr.Door, true).Frame())
	case elevator.CmdDeleteCard:
		s.log.Info("delete card", zap.Binary("card_id", fr.Data))
		_ = write(elevator.BuildAck(fr.Cmd, fr.Door, true).Frame())
	default:
		s.log.Warn("unknown command", zap.String("cmd", elevator.CmdName(fr.Cmd)))
	}
}
