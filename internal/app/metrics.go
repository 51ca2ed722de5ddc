package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/plant-collector/internal/metrics"
	"github.com/taoyao-code/plant-collector/internal/sink"
)

// NewMetrics 初始化注册表与应用指标
func NewMetrics(s *sink.Sink) (*prometheus.Registry, *metrics.AppMetrics) {
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg, s)
	return reg, appm
}
