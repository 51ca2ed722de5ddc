package health

import (
	"context"
	"time"

	"github.com/taoyao-code/plant-collector/internal/sink"
)

// SensorChecker 传感器读数新鲜度
// 读数过期或尚未成功采集时为 Degraded：/metrics 仍然输出最近一次（或默认）读数。
type SensorChecker struct {
	sink       *sink.Sink
	staleAfter time.Duration
	lastResult func() string
	now        func() time.Time
}

// NewSensorChecker 创建传感器检查器，lastResult 可为 nil
func NewSensorChecker(s *sink.Sink, staleAfter time.Duration, lastResult func() string) *SensorChecker {
	return &SensorChecker{sink: s, staleAfter: staleAfter, lastResult: lastResult, now: time.Now}
}

// Name 返回检查器名称
func (c *SensorChecker) Name() string {
	return "sensor"
}

// Check 执行健康检查
func (c *SensorChecker) Check(ctx context.Context) CheckResult {
	start := c.now()
	value, updated := c.sink.Read()

	details := map[string]any{
		"reading":     value,
		"stale_after": c.staleAfter.String(),
	}
	if c.lastResult != nil {
		details["last_result"] = c.lastResult()
	}

	res := CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
	switch {
	case updated.IsZero():
		res.Status = StatusDegraded
		res.Message = "no reading yet"
	case c.sink.Stale(c.staleAfter, start):
		res.Status = StatusDegraded
		res.Message = "reading stale"
		details["last_updated"] = updated
		details["age"] = start.Sub(updated).Round(time.Second).String()
	default:
		details["last_updated"] = updated
	}
	res.Latency = c.now().Sub(start)
	return res
}
