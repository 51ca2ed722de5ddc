package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	"github.com/taoyao-code/plant-collector/internal/health"
	"github.com/taoyao-code/plant-collector/internal/poller"
	"github.com/taoyao-code/plant-collector/internal/protocol/plant"
	"github.com/taoyao-code/plant-collector/internal/sink"
)

func TestGenerateInstanceID(t *testing.T) {
	t.Setenv("INSTANCE_ID", "")
	id := GenerateInstanceID()
	assert.True(t, strings.HasPrefix(id, "plant-collector-"))
	assert.NotEqual(t, id, GenerateInstanceID())

	t.Setenv("INSTANCE_ID", "edge-01")
	assert.Equal(t, "edge-01", GenerateInstanceID())
}

func TestConnectHistory_Disabled(t *testing.T) {
	h, err := ConnectHistory(context.Background(), cfgpkg.DatabaseConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestNewRedisClient_Disabled(t *testing.T) {
	c, err := NewRedisClient(context.Background(), cfgpkg.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewScheduler_MockPolling(t *testing.T) {
	cfg := &cfgpkg.Config{
		Poll:  cfgpkg.PollConfig{Interval: 10 * time.Millisecond, Timeout: time.Second},
		Clock: cfgpkg.ClockConfig{SyncInterval: time.Hour},
		Mock:  cfgpkg.MockConfig{Enabled: true},
		Serial: cfgpkg.SerialConfig{
			ResponseCapacity: plant.ResponseCapacity,
			ReadingOffset:    plant.ReadingOffset,
		},
	}
	s := sink.New(plant.DefaultReading)
	_, appm := NewMetrics(s)
	p := poller.New(cfg, "COM3", s, appm, zap.NewNop(), poller.WithRandom(func() plant.Reading { return 7 }))

	sched, err := NewScheduler(cfg, p, appm, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, sched.Start(context.Background(), 0))
	defer sched.Stop()

	assert.Eventually(t, func() bool { return s.Snapshot() == 7 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(appm.PollTotal.WithLabelValues("mock")) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestNewHealthAggregator(t *testing.T) {
	s := sink.New(255)
	agg := NewHealthAggregator(s, time.Minute, func() string { return "" })
	AddDatabaseChecker(agg, nil)
	AddRedisChecker(agg, nil)

	report := agg.Report(context.Background())
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.Len(t, report.Checks, 1)

	s.Set(10)
	assert.Equal(t, health.StatusHealthy, agg.OverallStatus(context.Background()))
}
