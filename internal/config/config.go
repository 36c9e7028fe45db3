package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// APIConfig 命令入口 API 配置
type APIConfig struct {
	RateLimit int      `mapstructure:"rateLimit"` // 每秒允许的命令数，<=0 关闭限流
	Burst     int      `mapstructure:"burst"`
	APIKeys   []string `mapstructure:"apiKeys"` // 为空时不鉴权
}

// ControllerConfig 梯控控制器连接配置
type ControllerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnectDelay"` // 固定间隔，不做指数退避
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	ReadBufferSize int           `mapstructure:"readBufferSize"`
	HeartbeatStale time.Duration `mapstructure:"heartbeatStale"` // 超过该时长未收到心跳，健康检查报降级
}

// Addr 返回 host:port
func (c ControllerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ServiceConfig 工作循环配置
type ServiceConfig struct {
	PollInterval time.Duration `mapstructure:"pollInterval"` // 无法主动通知的队列（Redis）轮询间隔
}

// DispatcherConfig 下发器配置
type DispatcherConfig struct {
	// RetryBuffer 断线期间暂存命令的上限，0 表示断线即丢弃
	RetryBuffer int `mapstructure:"retryBuffer"`
}

// QueueConfig 命令队列配置
type QueueConfig struct {
	Backend  string `mapstructure:"backend"` // memory | redis
	Capacity int    `mapstructure:"capacity"`
	RedisKey string `mapstructure:"redisKey"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	API        APIConfig        `mapstructure:"api"`
	Controller ControllerConfig `mapstructure:"controller"`
	Service    ServiceConfig    `mapstructure:"service"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 ELEVATOR_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 ELEVATOR_，并将点号替换为下划线
	v.SetEnvPrefix("ELEVATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查会导致运行期异常的配置
func (c *Config) Validate() error {
	if c.Controller.Host == "" {
		return errors.New("config: controller.host is required")
	}
	if c.Controller.Port <= 0 || c.Controller.Port > 65535 {
		return fmt.Errorf("config: controller.port %d out of range", c.Controller.Port)
	}
	if c.Controller.ConnectTimeout <= 0 || c.Controller.ReconnectDelay <= 0 {
		return errors.New("config: controller timeouts must be positive")
	}
	switch c.Queue.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown queue.backend %q", c.Queue.Backend)
	}
	if c.Dispatcher.RetryBuffer < 0 {
		return errors.New("config: dispatcher.retryBuffer must be >= 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "elevator-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("api.rateLimit", 20)
	v.SetDefault("api.burst", 40)
	v.SetDefault("api.apiKeys", []string{})

	v.SetDefault("controller.host", "192.168.0.100")
	v.SetDefault("controller.port", 60000)
	v.SetDefault("controller.connectTimeout", "10s")
	v.SetDefault("controller.reconnectDelay", "5s")
	v.SetDefault("controller.writeTimeout", "5s")
	v.SetDefault("controller.readBufferSize", 1024)
	v.SetDefault("controller.heartbeatStale", "60s")

	v.SetDefault("service.pollInterval", "10ms")

	v.SetDefault("dispatcher.retryBuffer", 0)

	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.capacity", 1024)
	v.SetDefault("queue.redisKey", "elevator:commands")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 1)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/elevator-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
