package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	appmetrics "github.com/taoyao-code/elevator-gateway/internal/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthzReadyzMetrics(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	srv := New(cfg, "/metrics", appmetrics.Handler(reg), func() bool { return true }, nil)

	assert.Equal(t, http.StatusOK, serve(srv, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(srv, "/readyz").Code)
	assert.Equal(t, http.StatusOK, serve(srv, "/metrics").Code)
}

func TestReadyzNotReady(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0"}
	srv := New(cfg, "", nil, func() bool { return false }, nil)

	rr := serve(srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "not-ready", rr.Body.String())
	assert.Equal(t, http.StatusNotFound, serve(srv, "/metrics").Code)
}

func TestEngineRoutesAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := New(cfgpkg.HTTPConfig{Addr: ":0"}, "", nil, nil, zap.New(core))
	srv.Engine().GET("/api/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rr := serve(srv, "/api/ping")
	assert.Equal(t, http.StatusOK, rr.Code)

	entries := logs.FilterMessage("http request").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "/api/ping", entries[0].ContextMap()["path"])
		assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
	}
}
