package devicesim

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/elevator-gateway/internal/metrics"
	"github.com/taoyao-code/elevator-gateway/internal/protocol/elevator"
	"github.com/taoyao-code/elevator-gateway/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	frames []*elevator.Frame
}

func (r *recorder) add(f *elevator.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recorder) cmds() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Cmd)
	}
	return out
}

func startSim(t *testing.T, cfg Config) (string, *recorder) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = New(cfg, nil, rec.add).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String(), rec
}

func handleNext(t *testing.T, s *session.Session) {
	t.Helper()
	select {
	case r := <-s.Inbound():
		require.NoError(t, s.Handle(r))
	case <-time.After(2 * time.Second):
		t.Fatal("nothing from simulator")
	}
}

func TestSimulator_HeartbeatAndAcks(t *testing.T) {
	addr, rec := startSim(t, Config{HeartbeatInterval: 20 * time.Millisecond, FailDoors: map[byte]bool{9: true}})

	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	s := session.New(session.Config{Addr: addr, ConnectTimeout: time.Second, ReconnectDelay: 10 * time.Millisecond},
		session.WithMetrics(m))
	defer s.Close()
	require.NoError(t, s.Connect(context.Background()))

	// 心跳 → 应答
	handleNext(t, s)
	require.Eventually(t, func() bool {
		cmds := rec.cmds()
		return len(cmds) > 0 && cmds[0] == elevator.CmdHeartbeat
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, s.LastHeartbeat().IsZero())

	ok, err := elevator.BuildOpenDoor(2)
	require.NoError(t, err)
	require.NoError(t, s.Send(ok.Frame()))
	fail, err := elevator.BuildOpenDoor(9)
	require.NoError(t, err)
	require.NoError(t, s.Send(fail.Frame()))

	require.Eventually(t, func() bool {
		// 应答与心跳交错到达，逐个处理
		select {
		case r := <-s.Inbound():
			_ = s.Handle(r)
		default:
		}
		return testutil.ToFloat64(m.OpenDoorAck.WithLabelValues("ok")) == 1 &&
			testutil.ToFloat64(m.OpenDoorAck.WithLabelValues("fail")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Connected())
}

func TestSimulator_AddAndDeleteCard(t *testing.T) {
	addr, rec := startSim(t, Config{HeartbeatInterval: time.Hour})

	s := session.New(session.Config{Addr: addr, ConnectTimeout: time.Second})
	defer s.Close()
	require.NoError(t, s.Connect(context.Background()))

	add, err := elevator.BuildAddCardExtended(elevator.CardRecord{CardID: 5, CardNumber: 99, Floors: 1 << 4, Name: "王五"})
	require.NoError(t, err)
	require.NoError(t, s.Send(add.Frame()))
	del, err := elevator.BuildDeleteCard(5)
	require.NoError(t, err)
	require.NoError(t, s.Send(del.Frame()))

	require.Eventually(t, func() bool { return len(rec.cmds()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte{elevator.CmdAddCardExt, elevator.CmdDeleteCard}, rec.cmds())

	rec.mu.Lock()
	parsed, err := elevator.ParseCardRecord(rec.frames[0].Data)
	rec.mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, "王五", parsed.Name)
	assert.Equal(t, uint64(16), parsed.Floors)
}
