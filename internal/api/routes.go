package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/elevator-gateway/internal/config"
	"github.com/taoyao-code/elevator-gateway/internal/metrics"
)

// RegisterCommandRoutes 注册命令入口路由
func RegisterCommandRoutes(r *gin.Engine, h *CommandHandler, cfg cfgpkg.APIConfig, logger *zap.Logger, m *metrics.AppMetrics) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.CORS())
	api := r.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKeys, logger, m))
	api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit, cfg.Burst), m))
	if len(cfg.APIKeys) == 0 {
		logger.Warn("api authentication disabled")
	}

	api.POST("/open-door", h.OpenDoor)
	api.POST("/add-card", h.AddCard)
	api.DELETE("/delete-card/:card_id", h.DeleteCard)

	logger.Info("command routes registered", zap.Int("endpoints", 3), zap.Int("rate_limit", cfg.RateLimit))
}
