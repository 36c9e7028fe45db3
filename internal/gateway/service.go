package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/dispatcher"
	"github.com/taoyao-code/elevator-gateway/internal/queue"
	"github.com/taoyao-code/elevator-gateway/internal/session"
)

var errLinkLost = errors.New("gateway: controller link lost")

// Service 单工作协程：持有控制器会话，交替处理上行数据与队列命令。
// 每次发送命令前先处理完已到达的上行数据，保证心跳应答先于命令。
type Service struct {
	sess  *session.Session
	disp  *dispatcher.Dispatcher
	queue queue.Queue
	poll  time.Duration
	log   *zap.Logger
}

// NewService 创建服务；pollInterval 用于无法主动通知的队列
func NewService(sess *session.Session, disp *dispatcher.Dispatcher, q queue.Queue, pollInterval time.Duration, log *zap.Logger) *Service {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{sess: sess, disp: disp, queue: q, poll: pollInterval, log: log}
}

// Run 阻塞运行直到 ctx 取消；断线后自动重连。
func (s *Service) Run(ctx context.Context) error {
	defer s.sess.Close()
	s.log.Info("gateway service started")
	for {
		if err := s.sess.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				s.log.Info("gateway service stopped")
				return nil
			}
			return err
		}
		s.disp.Flush()

		err := s.serve(ctx)
		if ctx.Err() != nil {
			s.log.Info("gateway service stopped")
			return nil
		}
		s.log.Warn("controller session ended, reconnecting", zap.Error(err))
	}
}

// serve 处理一次连接的生命周期，连接断开时返回
func (s *Service) serve(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	// 连接建立前已积压的命令
	if err := s.pump(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-s.sess.Inbound():
			if err := s.sess.Handle(res); err != nil {
				return err
			}
		case <-s.queue.Notify():
			if err := s.pump(ctx); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.pump(ctx); err != nil {
				return err
			}
		}
	}
}

// pump 取空队列；每条命令发送前先处理积压的上行数据
func (s *Service) pump(ctx context.Context) error {
	for ctx.Err() == nil {
		cmd, ok, err := s.queue.TryDequeue(ctx)
		if err != nil {
			s.log.Warn("dequeue command failed", zap.Error(err))
			return nil
		}
		if !ok {
			return nil
		}
		derr := s.drainInbound()
		// 断线时 Dispatch 负责丢弃或暂存
		_ = s.disp.Dispatch(cmd)
		if derr != nil {
			return derr
		}
		if !s.sess.Connected() {
			return errLinkLost
		}
	}
	return ctx.Err()
}

// drainInbound 非阻塞处理所有已到达的读取结果
func (s *Service) drainInbound() error {
	for {
		select {
		case res := <-s.sess.Inbound():
			if err := s.sess.Handle(res); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
