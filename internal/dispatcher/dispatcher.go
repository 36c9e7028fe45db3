package dispatcher

import (
	"errors"

	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/metrics"
	"github.com/taoyao-code/elevator-gateway/internal/protocol/elevator"
	"github.com/taoyao-code/elevator-gateway/internal/queue"
	"github.com/taoyao-code/elevator-gateway/internal/session"
)

// ErrHeld 命令因断线暂存，等待重连后补发
var ErrHeld = errors.New("dispatcher: command held until reconnect")

// Sender 下行写出；*session.Session 满足该接口
type Sender interface {
	Send(frame []byte) error
}

// Dispatcher 按到达顺序把队列命令编码并写给控制器。
// 非并发安全，只能由工作协程调用。
type Dispatcher struct {
	sender Sender
	log    *zap.Logger
	m      *metrics.AppMetrics

	retryCap int
	pending  []queue.Command // 断线暂存，retryCap 为 0 时恒为空
}

// Option 可选项
type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }

func WithMetrics(m *metrics.AppMetrics) Option { return func(d *Dispatcher) { d.m = m } }

// WithRetryBuffer 断线期间最多暂存 n 条命令，满了丢最旧的；0 表示断线即丢弃
func WithRetryBuffer(n int) Option { return func(d *Dispatcher) { d.retryCap = n } }

// New 创建下发器
func New(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{sender: sender, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	if d.retryCap < 0 {
		d.retryCap = 0
	}
	return d
}

// Pending 暂存命令数
func (d *Dispatcher) Pending() int { return len(d.pending) }

// Dispatch 构造、编码并发送一条命令。
// 参数非法时丢弃并返回构造错误；断线时丢弃，开启暂存时改为暂存并返回 ErrHeld。
func (d *Dispatcher) Dispatch(cmd queue.Command) error {
	out, err := d.build(cmd)
	if err != nil {
		return err
	}
	if len(d.pending) > 0 {
		// 保持顺序：先补发暂存，新命令排在其后
		d.hold(cmd)
		d.Flush()
		if len(d.pending) > 0 {
			return ErrHeld
		}
		return nil
	}
	if err := d.sender.Send(out.Frame()); err != nil {
		if d.retryCap > 0 {
			d.hold(cmd)
			d.log.Warn("controller unavailable, command held",
				zap.String("id", cmd.ID), zap.String("action", string(cmd.Action)),
				zap.Int("pending", len(d.pending)), zap.Error(err))
			return ErrHeld
		}
		reason := "send_error"
		if errors.Is(err, session.ErrNotConnected) {
			reason = "disconnected"
		}
		d.drop(cmd, reason, err)
		return err
	}
	d.sent(cmd, out)
	return nil
}

// Flush 按顺序补发暂存命令，写失败即停止（该命令留在队首）；返回成功发出的条数
func (d *Dispatcher) Flush() int {
	sent := 0
	for len(d.pending) > 0 {
		cmd := d.pending[0]
		out, err := d.build(cmd)
		if err != nil {
			d.pending = d.pending[1:]
			continue
		}
		if err := d.sender.Send(out.Frame()); err != nil {
			d.log.Debug("flush interrupted", zap.Int("remaining", len(d.pending)), zap.Error(err))
			break
		}
		d.pending = d.pending[1:]
		d.sent(cmd, out)
		sent++
	}
	if sent > 0 {
		d.log.Info("flushed held commands", zap.Int("sent", sent), zap.Int("remaining", len(d.pending)))
	}
	return sent
}

func (d *Dispatcher) build(cmd queue.Command) (elevator.Outbound, error) {
	out, err := cmd.Outbound()
	if err != nil {
		d.drop(cmd, "invalid", err)
		return elevator.Outbound{}, err
	}
	return out, nil
}

func (d *Dispatcher) sent(cmd queue.Command, out elevator.Outbound) {
	if d.m != nil {
		d.m.CommandsSent.WithLabelValues(string(cmd.Action)).Inc()
	}
	d.log.Info("command sent",
		zap.String("id", cmd.ID), zap.String("action", string(cmd.Action)),
		zap.String("cmd", elevator.CmdName(out.Cmd)), zap.Uint8("door", out.Door))
}

// hold 追加到暂存队尾，超限时淘汰最旧的
func (d *Dispatcher) hold(cmd queue.Command) {
	d.pending = append(d.pending, cmd)
	for len(d.pending) > d.retryCap {
		evicted := d.pending[0]
		d.pending = d.pending[1:]
		d.drop(evicted, "evicted", nil)
	}
}

func (d *Dispatcher) drop(cmd queue.Command, reason string, err error) {
	if d.m != nil {
		d.m.CommandsDropped.WithLabelValues(reason).Inc()
	}
	fields := []zap.Field{zap.String("id", cmd.ID), zap.String("action", string(cmd.Action)), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	d.log.Warn("command dropped", fields...)
}
