package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/plant-collector/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
)

// RegisterReadingRoutes 注册读数查询路由
func RegisterReadingRoutes(r gin.IRouter, handler *ReadingHandler, cfg cfgpkg.APIConfig, logger *zap.Logger) {
	if r == nil || handler == nil {
		return
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit))
	if cfg.Auth.Enabled {
		api.Use(middleware.APIKeyAuth(cfg.Auth, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(cfg.Auth.APIKeys)))
	}

	api.GET("/reading", handler.CurrentReading)
	api.GET("/readings", handler.ListReadings)
	api.GET("/readings/latest", handler.LatestStored)
	api.GET("/ports", handler.ListPorts)

	logger.Info("reading routes registered", zap.Int("endpoints", 4))
}
