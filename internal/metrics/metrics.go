package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 网关业务指标
type AppMetrics struct {
	FramesSent       *prometheus.CounterVec // labels: cmd
	FramesReceived   *prometheus.CounterVec // labels: cmd
	BytesReceived    prometheus.Counter
	HeartbeatTotal   prometheus.Counter
	ConnectTotal     *prometheus.CounterVec // labels: result=ok|error
	DisconnectTotal  *prometheus.CounterVec // labels: reason
	DecodeErrors     prometheus.Counter
	SessionState     prometheus.Gauge       // 0=disconnected 1=connecting 2=connected
	CommandsEnqueued *prometheus.CounterVec // labels: action
	CommandsSent     *prometheus.CounterVec // labels: action
	CommandsDropped  *prometheus.CounterVec // labels: reason=invalid|disconnected|evicted|send_error
	OpenDoorAck      *prometheus.CounterVec // labels: result=ok|fail
	APIRejected      *prometheus.CounterVec // labels: reason=rate_limited|unauthorized|forbidden|invalid|queue_full
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_frames_sent_total",
			Help: "Frames written to the controller by command.",
		}, []string{"cmd"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_frames_received_total",
			Help: "Frames decoded from the controller by command.",
		}, []string{"cmd"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elevator_bytes_received_total",
			Help: "Total bytes received from the controller.",
		}),
		HeartbeatTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elevator_heartbeat_total",
			Help: "Heartbeats answered.",
		}),
		ConnectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_connect_total",
			Help: "Controller connect attempts.",
		}, []string{"result"}),
		DisconnectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_disconnect_total",
			Help: "Controller link teardowns by reason.",
		}, []string{"reason"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elevator_decode_errors_total",
			Help: "Malformed inbound frames.",
		}),
		SessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elevator_session_state",
			Help: "Session state: 0=disconnected 1=connecting 2=connected.",
		}),
		CommandsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_commands_enqueued_total",
			Help: "Commands accepted by the API.",
		}, []string{"action"}),
		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_commands_sent_total",
			Help: "Commands written to the controller.",
		}, []string{"action"}),
		CommandsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_commands_dropped_total",
			Help: "Commands dropped by reason.",
		}, []string{"reason"}),
		OpenDoorAck: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_open_door_ack_total",
			Help: "Open-door responses by result.",
		}, []string{"result"}),
		APIRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elevator_api_rejected_total",
			Help: "API requests rejected before enqueue.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.FramesSent, m.FramesReceived, m.BytesReceived, m.HeartbeatTotal,
		m.ConnectTotal, m.DisconnectTotal, m.DecodeErrors, m.SessionState,
		m.CommandsEnqueued, m.CommandsSent, m.CommandsDropped, m.OpenDoorAck, m.APIRejected,
	)
	return m
}
