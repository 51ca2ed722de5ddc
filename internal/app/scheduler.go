package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	"github.com/taoyao-code/plant-collector/internal/metrics"
	"github.com/taoyao-code/plant-collector/internal/poller"
	"github.com/taoyao-code/plant-collector/internal/scheduler"
)

// 任务名称
const (
	JobPoll  = "poll"
	JobClock = "clock"
)

// NewScheduler 注册采集任务与（可选）校时任务
func NewScheduler(cfg *cfgpkg.Config, p *poller.Poller, appm *metrics.AppMetrics, log *zap.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(log.Named("scheduler"))
	s.OnSkip = func(name string) { appm.TicksSkipped.WithLabelValues(name).Inc() }

	// 任务错误已在 Poller 内记录，调度器只负责节奏
	if err := s.Add(JobPoll, cfg.Poll.Interval, func(ctx context.Context) { _ = p.Poll(ctx) }); err != nil {
		return nil, err
	}
	if cfg.Clock.SyncInterval > 0 && !p.Mock() {
		if err := s.Add(JobClock, cfg.Clock.SyncInterval, func(ctx context.Context) { _ = p.SyncClock(ctx) }); err != nil {
			return nil, err
		}
	}
	return s, nil
}
