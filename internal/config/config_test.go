package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.100", cfg.Controller.Host)
	assert.Equal(t, 60000, cfg.Controller.Port)
	assert.Equal(t, "192.168.0.100:60000", cfg.Controller.Addr())
	assert.Equal(t, 10*time.Second, cfg.Controller.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Controller.ReconnectDelay)
	assert.Equal(t, 10*time.Millisecond, cfg.Service.PollInterval)
	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, 0, cfg.Dispatcher.RetryBuffer)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gw.yaml")
	content := []byte(`
controller:
  host: 10.0.0.8
  port: 60001
  reconnectDelay: 2s
queue:
  backend: redis
dispatcher:
  retryBuffer: 16
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("ELEVATOR_CONTROLLER_PORT", "61000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.8", cfg.Controller.Host)
	assert.Equal(t, 61000, cfg.Controller.Port)
	assert.Equal(t, 2*time.Second, cfg.Controller.ReconnectDelay)
	assert.Equal(t, "redis", cfg.Queue.Backend)
	assert.Equal(t, 16, cfg.Dispatcher.RetryBuffer)
	// 未配置项保持默认
	assert.Equal(t, 10*time.Second, cfg.Controller.ConnectTimeout)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("controller:\n  host: 172.16.0.2\n"), 0o600))
	t.Setenv("ELEVATOR_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.2", cfg.Controller.Host)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Controller: ControllerConfig{Host: "h", Port: 1, ConnectTimeout: time.Second, ReconnectDelay: time.Second},
			Queue:      QueueConfig{Backend: "memory"},
		}
	}
	ok := base()
	assert.NoError(t, ok.Validate())

	c := base()
	c.Controller.Host = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Controller.Port = 70000
	assert.Error(t, c.Validate())

	c = base()
	c.Queue.Backend = "kafka"
	assert.Error(t, c.Validate())

	c = base()
	c.Dispatcher.RetryBuffer = -1
	assert.Error(t, c.Validate())
}
