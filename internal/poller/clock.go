package poller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/plant-collector/internal/metrics"
	"github.com/taoyao-code/plant-collector/internal/protocol/plant"
)

// SyncClock 读取传感器 RTC，导出时钟偏差；偏差超过 clock.maxDrift 时写回主机时间
func (p *Poller) SyncClock(ctx context.Context) error {
	if p.mock {
		return nil
	}
	if p.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*p.pollTimeout)
		defer cancel()
	}

	resp, err := p.exchange(ctx, plant.BuildGetTime())
	if err != nil {
		return p.clockFailed("read", err)
	}
	host := p.now()
	sensorTime, err := decodeTime(resp, host.Location())
	if err != nil {
		return p.clockFailed("read", err)
	}

	drift := sensorTime.Sub(host.Truncate(time.Second))
	p.metrics.RTCDrift.Set(drift.Seconds())
	if drift.Abs() <= p.clockCfg.MaxDrift {
		p.metrics.ClockSyncTotal.WithLabelValues("ok").Inc()
		p.logger.Debug("sensor clock in sync", zap.Duration("drift", drift))
		return nil
	}

	target := p.now()
	resp, err = p.exchange(ctx, plant.BuildSetTime(target))
	if err != nil {
		return p.clockFailed("set", err)
	}
	// 固件以 RTCTime 回显写入的时间
	if _, err := decodeTime(resp, target.Location()); err != nil {
		return p.clockFailed("set", err)
	}
	p.metrics.ClockSyncTotal.WithLabelValues("adjusted").Inc()
	p.logger.Warn("sensor clock adjusted",
		zap.Duration("drift", drift),
		zap.Duration("max_drift", p.clockCfg.MaxDrift),
		zap.Time("sensor_time", sensorTime),
		zap.Time("host_time", target))
	return nil
}

func decodeTime(resp []byte, loc *time.Location) (time.Time, error) {
	msg, err := plant.Parse(resp)
	if err != nil {
		return time.Time{}, err
	}
	return plant.TimeFromMessage(msg, loc)
}

func (p *Poller) clockFailed(op string, err error) error {
	p.metrics.ClockSyncTotal.WithLabelValues(metrics.ResultError).Inc()
	p.logger.Warn("sensor clock sync failed",
		zap.String("op", op),
		zap.String("result", Classify(err)),
		zap.Error(err))
	return fmt.Errorf("clock %s: %w", op, err)
}
