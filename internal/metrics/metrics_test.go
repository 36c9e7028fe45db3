package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics_Exposed(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.HeartbeatTotal.Inc()
	m.CommandsDropped.WithLabelValues("disconnected").Add(2)
	m.SessionState.Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HeartbeatTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsDropped.WithLabelValues("disconnected")))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "elevator_heartbeat_total 1")
	assert.Contains(t, string(body), `elevator_commands_dropped_total{reason="disconnected"} 2`)
	assert.Contains(t, string(body), "elevator_session_state 2")
}
