package poller

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	"github.com/taoyao-code/plant-collector/internal/metrics"
	"github.com/taoyao-code/plant-collector/internal/protocol/plant"
	"github.com/taoyao-code/plant-collector/internal/serial"
	"github.com/taoyao-code/plant-collector/internal/sink"
	"github.com/taoyao-code/plant-collector/internal/storage/models"
)

// Recorder 成功读数的下游（Redis 缓存、数据库历史）
type Recorder interface {
	Record(ctx context.Context, r models.Reading) error
}

// Opener 打开串口，测试中替换为假串口
type Opener func(path string, cfg cfgpkg.SerialConfig) (*serial.Conn, error)

type namedRecorder struct {
	name string
	rec  Recorder
}

// Poller 一次采集周期：打开/复用串口 → 请求 → 校验 → 写入 Sink → 通知 Recorder
type Poller struct {
	serialCfg   cfgpkg.SerialConfig
	pollTimeout time.Duration
	clockCfg    cfgpkg.ClockConfig
	mock        bool
	path        string

	sink      *sink.Sink
	metrics   *metrics.AppMetrics
	logger    *zap.Logger
	recorders []namedRecorder

	open     Opener
	diagnose func(*zap.Logger)
	now      func() time.Time
	random   func() plant.Reading

	mu   sync.Mutex // 保护 conn 槽位
	conn *serial.Conn

	lastResult atomic.Value // string
}

// Option 可选配置
type Option func(*Poller)

// WithRecorder 追加一个命名 Recorder
func WithRecorder(name string, r Recorder) Option {
	return func(p *Poller) {
		if r != nil {
			p.recorders = append(p.recorders, namedRecorder{name: name, rec: r})
		}
	}
}

// WithOpener 替换串口打开方式
func WithOpener(o Opener) Option {
	return func(p *Poller) { p.open = o }
}

// WithDiagnostics 替换打开失败后的诊断输出
func WithDiagnostics(fn func(*zap.Logger)) Option {
	return func(p *Poller) { p.diagnose = fn }
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithRandom 替换模拟模式的读数来源
func WithRandom(fn func() plant.Reading) Option {
	return func(p *Poller) { p.random = fn }
}

// New 创建 Poller，path 为已解析的串口路径
func New(cfg *cfgpkg.Config, path string, s *sink.Sink, m *metrics.AppMetrics, logger *zap.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewAppMetrics(prometheus.NewRegistry(), s)
	}
	p := &Poller{
		serialCfg:   cfg.Serial,
		pollTimeout: cfg.Poll.Timeout,
		clockCfg:    cfg.Clock,
		mock:        cfg.Mock.Enabled,
		path:        path,
		sink:        s,
		metrics:     m,
		logger:      logger,
		open:        serial.Open,
		diagnose:    serial.LogAvailablePorts,
		now:         time.Now,
		random:      func() plant.Reading { return plant.Reading(rand.IntN(255)) },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastResult.Store("")
	return p
}

// Mock 是否为模拟模式
func (p *Poller) Mock() bool { return p.mock }

// Path 串口路径
func (p *Poller) Path() string { return p.path }

// LastResult 最近一次采集的结果标签，尚未采集时为空
func (p *Poller) LastResult() string { return p.lastResult.Load().(string) }

// Classify 将采集错误映射为结果标签
func Classify(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case serial.IsOpenError(err):
		return metrics.ResultOpenError
	case errors.Is(err, serial.ErrReadTimeout), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultTimeout
	case errors.Is(err, context.Canceled):
		return metrics.ResultCanceled
	case errors.Is(err, plant.ErrChecksumMismatch):
		return metrics.ResultChecksumError
	case errors.Is(err, plant.ErrTruncatedFrame):
		return metrics.ResultTruncated
	case plant.IsDeviceError(err):
		return metrics.ResultDeviceError
	case serial.IsIOError(err), errors.Is(err, serial.ErrClosed):
		return metrics.ResultIOError
	}
	return metrics.ResultError
}

// Poll 执行一个采集周期；失败时 Sink 保持原值，错误只用于记录
func (p *Poller) Poll(ctx context.Context) error {
	cycleID := uuid.NewString()
	log := p.logger.With(zap.String("cycle_id", cycleID))

	if p.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.pollTimeout)
		defer cancel()
	}

	var (
		reading plant.Reading
		err     error
	)
	if p.mock {
		reading = p.random()
	} else {
		reading, err = p.measure(ctx)
	}

	result := Classify(err)
	if err == nil && p.mock {
		result = metrics.ResultMock
	}
	p.lastResult.Store(result)
	p.metrics.PollTotal.WithLabelValues(result).Inc()

	if err != nil {
		log.Warn("poll failed, keeping previous reading",
			zap.String("result", result),
			zap.String("device", p.path),
			zap.Int64("previous", p.sink.Snapshot()),
			zap.Error(err))
		return err
	}

	at := p.now()
	p.sink.SetAt(int64(reading), at)
	log.Info("moisture reading",
		zap.Uint8("reading", uint8(reading)),
		zap.String("device", p.path),
		zap.Bool("mock", p.mock))

	p.record(ctx, log, models.Reading{
		CycleID: cycleID,
		Device:  p.path,
		Value:   int16(reading),
		Mock:    p.mock,
		ReadAt:  at,
	})
	return nil
}

func (p *Poller) measure(ctx context.Context) (plant.Reading, error) {
	resp, err := p.exchange(ctx, plant.BuildRequest())
	if err != nil {
		return 0, err
	}
	reading, err := plant.ValidateAndExtract(resp, p.serialCfg.ReadingOffset)
	if err != nil {
		return 0, err
	}
	// 校验通过的设备错误帧（253/254/255）不是读数
	if msg, perr := plant.Parse(resp); perr == nil {
		if derr := msg.DeviceError(); derr != nil {
			return 0, derr
		}
	}
	return reading, nil
}

func (p *Poller) record(ctx context.Context, log *zap.Logger, r models.Reading) {
	for _, nr := range p.recorders {
		if err := nr.rec.Record(ctx, r); err != nil {
			p.metrics.RecordErrors.WithLabelValues(nr.name).Inc()
			log.Warn("record reading failed", zap.String("recorder", nr.name), zap.Error(err))
		}
	}
}

// exchange 在当前连接上完成一次请求/响应；读写失败或超时后丢弃连接，下一周期重新打开
func (p *Poller) exchange(ctx context.Context, req []byte) ([]byte, error) {
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := conn.Exchange(ctx, req, p.serialCfg.ResponseCapacity, p.serialCfg.ReadTimeout)
	p.metrics.ExchangeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if serial.IsIOError(err) || errors.Is(err, serial.ErrReadTimeout) || errors.Is(err, serial.ErrClosed) {
			p.drop(conn, err)
		}
		return nil, err
	}
	p.metrics.SerialBytesWritten.Add(float64(len(req)))
	p.metrics.SerialBytesRead.Add(float64(len(resp)))
	return resp, nil
}

func (p *Poller) connection() (*serial.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}

	conn, err := p.open(p.path, p.serialCfg)
	if err != nil {
		p.metrics.PortOpenTotal.WithLabelValues("error").Inc()
		p.logger.Error("open serial port failed", zap.String("device", p.path), zap.Error(err))
		if p.diagnose != nil {
			p.diagnose(p.logger)
		}
		return nil, err
	}
	conn.Complete = plant.FrameComplete
	p.metrics.PortOpenTotal.WithLabelValues("ok").Inc()
	p.logger.Info("serial port opened", zap.String("device", p.path), zap.Int("baud_rate", p.serialCfg.BaudRate))
	p.conn = conn
	return conn, nil
}

func (p *Poller) drop(conn *serial.Conn, cause error) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.mu.Unlock()
	if err := conn.Close(); err != nil {
		p.logger.Debug("close serial port", zap.Error(err))
	}
	p.logger.Info("serial port closed, will reopen next cycle", zap.String("device", p.path), zap.NamedError("cause", cause))
}

// Close 关闭当前串口连接
func (p *Poller) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
