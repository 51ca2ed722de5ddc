package metrics

import (
	"bytes"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"

	"github.com/taoyao-code/plant-collector/internal/sink"
)

// textContentType Prometheus 文本格式 0.0.4
const textContentType = "text/plain; version=0.0.4; charset=utf-8"

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Encode 采集全部指标并编码为文本格式
func Encode(g prometheus.Gatherer) ([]byte, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Handler 返回指标 HTTP 处理器
// 采集或编码失败时仍返回 200，错误描述作为响应体，保证抓取端点始终可用。
func Handler(g prometheus.Gatherer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := Encode(g)
		if err != nil {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", textContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

// 采集结果标签
const (
	ResultOK            = "ok"
	ResultOpenError     = "open_error"
	ResultIOError       = "io_error"
	ResultTimeout       = "timeout"
	ResultChecksumError = "checksum_error"
	ResultTruncated     = "truncated"
	ResultDeviceError   = "device_error"
	ResultMock          = "mock"
	ResultCanceled      = "canceled"
	ResultError         = "error"
)

// AppMetrics 自定义业务指标
type AppMetrics struct {
	PollTotal          *prometheus.CounterVec // labels: result
	ExchangeDuration   prometheus.Histogram
	TicksSkipped       *prometheus.CounterVec // labels: job
	PortOpenTotal      *prometheus.CounterVec // labels: result=ok|error
	SerialBytesWritten prometheus.Counter
	SerialBytesRead    prometheus.Counter
	RecordErrors       *prometheus.CounterVec // labels: recorder
	RTCDrift           prometheus.Gauge       // 传感器时钟 - 主机时钟（秒）
	ClockSyncTotal     *prometheus.CounterVec // labels: result=ok|adjusted|error
}

// NewAppMetrics 注册并返回业务指标，湿度读数直接读取 Sink
func NewAppMetrics(reg prometheus.Registerer, s *sink.Sink) *AppMetrics {
	groundMoisture := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ground_mousture",
		Help: "Ground moisture",
	}, func() float64 { return float64(s.Snapshot()) })

	lastUpdated := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ground_moisture_last_updated_timestamp_seconds",
		Help: "Unix time of the last successful moisture reading, 0 before the first one.",
	}, func() float64 {
		at := s.LastUpdated()
		if at.IsZero() {
			return 0
		}
		return float64(at.UnixNano()) / 1e9
	})

	m := &AppMetrics{
		PollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_poll_total",
			Help: "Sensor poll cycles by result.",
		}, []string{"result"}),
		ExchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plant_exchange_duration_seconds",
			Help:    "Serial request/response exchange duration.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
		}),
		TicksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_scheduler_ticks_skipped_total",
			Help: "Scheduler ticks dropped because the previous run was still in progress.",
		}, []string{"job"}),
		PortOpenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_serial_open_total",
			Help: "Serial port open attempts by result.",
		}, []string{"result"}),
		SerialBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plant_serial_bytes_written_total",
			Help: "Total bytes written to the sensor.",
		}),
		SerialBytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plant_serial_bytes_read_total",
			Help: "Total bytes read from the sensor.",
		}),
		RecordErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_record_errors_total",
			Help: "Failed attempts to persist a reading, by recorder.",
		}, []string{"recorder"}),
		RTCDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plant_rtc_drift_seconds",
			Help: "Sensor RTC time minus host time at the last clock check.",
		}),
		ClockSyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plant_clock_sync_total",
			Help: "Sensor clock checks by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(groundMoisture, lastUpdated,
		m.PollTotal, m.ExchangeDuration, m.TicksSkipped, m.PortOpenTotal,
		m.SerialBytesWritten, m.SerialBytesRead, m.RecordErrors, m.RTCDrift, m.ClockSyncTotal)
	return m
}
