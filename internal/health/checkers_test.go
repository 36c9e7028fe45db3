package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/elevator-gateway/internal/queue"
	"github.com/taoyao-code/elevator-gateway/internal/session"
)

type fakeLink struct {
	state session.State
	last  time.Time
}

func (f fakeLink) State() session.State     { return f.state }
func (f fakeLink) LastHeartbeat() time.Time { return f.last }

func TestControllerChecker(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		link   fakeLink
		status Status
	}{
		{"已连接", fakeLink{session.StateConnected, now.Add(-5 * time.Second)}, StatusHealthy},
		{"已连接未收到心跳", fakeLink{session.StateConnected, time.Time{}}, StatusHealthy},
		{"心跳超时", fakeLink{session.StateConnected, now.Add(-time.Minute)}, StatusDegraded},
		{"连接中", fakeLink{session.StateConnecting, time.Time{}}, StatusUnhealthy},
		{"断开", fakeLink{session.StateDisconnected, now}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewControllerChecker(tt.link, "192.168.0.100:60000", 30*time.Second)
			c.now = func() time.Time { return now }
			res := c.Check(context.Background())
			assert.Equal(t, tt.status, res.Status, res.Message)
			assert.Equal(t, tt.link.state.String(), res.Details["state"])
		})
	}
}

func TestQueueChecker(t *testing.T) {
	q := queue.NewMemory(5)
	c := NewQueueChecker(q)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), queue.OpenDoor(1)))
		if i == 4 {
			assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
		}
	}
	_, _, _ = q.TryDequeue(context.Background())
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status, "4/5 is exactly 80%")

	assert.Equal(t, StatusHealthy, NewQueueChecker(queue.NewMemory(0)).Check(context.Background()).Status)
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	link := &fakeLink{state: session.StateConnected}
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(NewControllerChecker(link, "c:1", 0)))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Contains(t, report.Checks, "controller")
	assert.Equal(t, http.StatusOK, get("/health/ready").Code)

	link.state = session.StateDisconnected
	assert.Equal(t, http.StatusServiceUnavailable, get("/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/health/ready").Code)
	assert.Equal(t, http.StatusOK, get("/health/live").Code)
}
