package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/plant-collector/internal/health"
	"github.com/taoyao-code/plant-collector/internal/sink"
)

// NewHealthAggregator 创建健康检查聚合器，初始只包含传感器检查
func NewHealthAggregator(s *sink.Sink, staleAfter time.Duration, lastResult func() string) *health.Aggregator {
	return health.NewAggregator(
		health.NewSensorChecker(s, staleAfter, lastResult),
	)
}

// AddDatabaseChecker 添加数据库检查器
func AddDatabaseChecker(aggregator *health.Aggregator, history *History) {
	if history != nil && history.Pinger != nil {
		aggregator.AddChecker(health.NewDatabaseChecker(history.Pinger))
	}
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r gin.IRouter, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
