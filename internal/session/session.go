package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/metrics"
	"github.com/taoyao-code/elevator-gateway/internal/protocol/elevator"
)

var (
	// ErrNotConnected 未连接时调用 Send
	ErrNotConnected = errors.New("session: not connected")
	// ErrPeerClosed 对端关闭（零长度读）
	ErrPeerClosed = errors.New("session: peer closed")
)

// Dialer 建立到控制器的连接；*net.Dialer 满足该接口
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config 会话参数
type Config struct {
	Addr           string
	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
	ReadBufferSize int
}

// ConfigFrom 由控制器配置生成会话参数
func ConfigFrom(c cfgpkg.ControllerConfig) Config {
	return Config{
		Addr:           c.Addr(),
		ConnectTimeout: c.ConnectTimeout,
		ReconnectDelay: c.ReconnectDelay,
		WriteTimeout:   c.WriteTimeout,
		ReadBufferSize: c.ReadBufferSize,
	}
}

// ReadResult 读协程交给工作循环的一次读取结果
type ReadResult struct {
	Data []byte
	Err  error
	gen  uint64
}

// Session 与控制器之间唯一的 TCP 会话。
// 除 State/Connected/LastHeartbeat 外，所有方法只能由同一个工作协程调用；
// 读协程只负责读取并通过 Inbound 交付数据，不写 socket。
type Session struct {
	cfg    Config
	dialer Dialer
	log    *zap.Logger
	m      *metrics.AppMetrics

	state         atomic.Int32
	lastHeartbeat atomic.Int64 // unix nano

	conn    net.Conn
	gen     uint64
	connEnd chan struct{} // 当前连接结束时关闭，释放读协程
	inbound chan ReadResult

	onState func(from, to State)
}

// Option 会话可选项
type Option func(*Session)

func WithDialer(d Dialer) Option { return func(s *Session) { s.dialer = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }

func WithMetrics(m *metrics.AppMetrics) Option { return func(s *Session) { s.m = m } }

// WithStateHook 状态变化回调（在工作协程内同步调用）
func WithStateHook(fn func(from, to State)) Option { return func(s *Session) { s.onState = fn } }

// New 创建会话（不立即连接）
func New(cfg Config, opts ...Option) *Session {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	s := &Session{
		cfg:     cfg,
		dialer:  &net.Dialer{},
		log:     zap.NewNop(),
		inbound: make(chan ReadResult, 16),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// State 当前状态（并发安全）
func (s *Session) State() State { return State(s.state.Load()) }

// Connected 是否已连接（并发安全）
func (s *Session) Connected() bool { return s.State() == StateConnected }

// LastHeartbeat 最近一次应答心跳的时间；从未收到返回零值
func (s *Session) LastHeartbeat() time.Time {
	ns := s.lastHeartbeat.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Inbound 读取结果通道，工作循环从此取数据后交给 Handle
func (s *Session) Inbound() <-chan ReadResult { return s.inbound }

func (s *Session) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	if s.m != nil {
		s.m.SessionState.Set(float64(to))
	}
	if from != to && s.onState != nil {
		s.onState(from, to)
	}
}

// Connect 连接控制器：失败按固定间隔无限重试，直到成功或 ctx 取消。
func (s *Session) Connect(ctx context.Context) error {
	if s.conn != nil {
		s.disconnect("reconnect")
	}
	for attempt := 1; ; attempt++ {
		s.setState(StateConnecting)
		s.log.Info("connecting to controller", zap.String("addr", s.cfg.Addr), zap.Int("attempt", attempt))

		dctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		conn, err := s.dialer.DialContext(dctx, "tcp", s.cfg.Addr)
		cancel()
		if err == nil {
			s.attach(conn)
			if s.m != nil {
				s.m.ConnectTotal.WithLabelValues("ok").Inc()
			}
			s.log.Info("controller connected", zap.String("addr", s.cfg.Addr), zap.Int("attempt", attempt))
			return nil
		}

		if s.m != nil {
			s.m.ConnectTotal.WithLabelValues("error").Inc()
		}
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("controller connect failed, retrying",
			zap.String("addr", s.cfg.Addr), zap.Duration("delay", s.cfg.ReconnectDelay), zap.Error(err))

		t := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// attach 接管新连接并启动读协程
func (s *Session) attach(conn net.Conn) {
	s.gen++
	s.conn = conn
	s.connEnd = make(chan struct{})
	go s.readLoop(conn, s.gen, s.connEnd)
	s.setState(StateConnected)
}

// readLoop 只读不写；连接结束（任意错误）后退出
func (s *Session) readLoop(conn net.Conn, gen uint64, end <-chan struct{}) {
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		var res ReadResult
		switch {
		case n > 0:
			data := make([]byte, n)
			copy(data, buf[:n])
			res = ReadResult{Data: data, gen: gen}
		case err == nil || errors.Is(err, io.EOF):
			res = ReadResult{Err: ErrPeerClosed, gen: gen}
		default:
			res = ReadResult{Err: err, gen: gen}
		}
		select {
		case s.inbound <- res:
		case <-end:
			return
		}
		if res.Err != nil {
			return
		}
		if err != nil {
			// 数据与错误同时返回：数据已交付，下一轮补交错误
			s.deliverErr(err, gen, end)
			return
		}
	}
}

func (s *Session) deliverErr(err error, gen uint64, end <-chan struct{}) {
	if errors.Is(err, io.EOF) {
		err = ErrPeerClosed
	}
	select {
	case s.inbound <- ReadResult{Err: err, gen: gen}:
	case <-end:
	}
}

// Handle 处理一次读取结果。返回非 nil 表示连接已被拆除，调用方应重新 Connect。
// 同一次读取中的心跳在返回前已同步应答。
func (s *Session) Handle(res ReadResult) error {
	if res.gen != s.gen || s.conn == nil {
		// 旧连接遗留的结果
		return nil
	}
	if res.Err != nil {
		reason := "read_error"
		if errors.Is(res.Err, ErrPeerClosed) {
			reason = "peer_closed"
		}
		s.log.Warn("controller link lost", zap.String("reason", reason), zap.Error(res.Err))
		s.disconnect(reason)
		return res.Err
	}
	if s.m != nil {
		s.m.BytesReceived.Add(float64(len(res.Data)))
	}

	frames, derr := elevator.DecodeAll(res.Data)
	for _, fr := range frames {
		if err := s.handleFrame(fr); err != nil {
			return err
		}
	}
	if derr != nil {
		if s.m != nil {
			s.m.DecodeErrors.Inc()
		}
		s.log.Error("malformed frame from controller, resetting link",
			zap.Binary("raw", res.Data), zap.Error(derr))
		s.disconnect("decode_error")
		return derr
	}
	return nil
}

func (s *Session) handleFrame(fr *elevator.Frame) error {
	if s.m != nil {
		s.m.FramesReceived.WithLabelValues(elevator.CmdName(fr.Cmd)).Inc()
	}
	switch fr.Cmd {
	case elevator.CmdHeartbeat:
		if err := s.Send(elevator.BuildHeartbeatReply().Frame()); err != nil {
			return err
		}
		s.lastHeartbeat.Store(time.Now().UnixNano())
		if s.m != nil {
			s.m.HeartbeatTotal.Inc()
		}
		s.log.Debug("heartbeat answered")
	case elevator.CmdOpenDoor:
		ok, has := fr.Ack()
		result := "fail"
		if ok {
			result = "ok"
		}
		if s.m != nil {
			s.m.OpenDoorAck.WithLabelValues(result).Inc()
		}
		if ok {
			s.log.Info("open door acknowledged", zap.Uint8("door", fr.Door))
		} else {
			s.log.Warn("open door rejected", zap.Uint8("door", fr.Door), zap.Bool("has_data", has), zap.Binary("data", fr.Data))
		}
	default:
		s.log.Info("unhandled controller frame",
			zap.String("cmd", elevator.CmdName(fr.Cmd)), zap.Uint8("door", fr.Door), zap.Binary("data", fr.Data))
	}
	return nil
}

// Send 整帧写出；未连接返回 ErrNotConnected，写失败会拆除连接。
func (s *Session) Send(frame []byte) error {
	if s.conn == nil || !s.Connected() {
		return ErrNotConnected
	}
	if s.cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := s.conn.Write(frame); err != nil {
		s.log.Warn("controller write failed", zap.Error(err))
		s.disconnect("write_error")
		return fmt.Errorf("session: write: %w", err)
	}
	if s.m != nil && len(frame) > 2 {
		s.m.FramesSent.WithLabelValues(elevator.CmdName(frame[2])).Inc()
	}
	return nil
}

// disconnect 关闭当前连接，状态回到 Disconnected
func (s *Session) disconnect(reason string) {
	if s.conn == nil {
		return
	}
	close(s.connEnd)
	_ = s.conn.Close()
	s.conn = nil
	s.connEnd = nil
	if s.m != nil {
		s.m.DisconnectTotal.WithLabelValues(reason).Inc()
	}
	s.setState(StateDisconnected)
}

// Close 关闭会话
func (s *Session) Close() error {
	s.disconnect("shutdown")
	return nil
}
