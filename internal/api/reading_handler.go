package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/plant-collector/internal/serial"
	"github.com/taoyao-code/plant-collector/internal/sink"
	"github.com/taoyao-code/plant-collector/internal/storage"
)

// ReadingHandler 读数查询API处理器
type ReadingHandler struct {
	sink       *sink.Sink
	staleAfter time.Duration
	history    storage.ReadingRepo // 未配置历史存储时为 nil
	device     string
	mock       bool
	logger     *zap.Logger

	listPorts func() ([]serial.PortInfo, error)
	now       func() time.Time
}

// NewReadingHandler 创建读数查询API处理器
func NewReadingHandler(
	s *sink.Sink,
	staleAfter time.Duration,
	history storage.ReadingRepo,
	device string,
	mock bool,
	logger *zap.Logger,
) *ReadingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadingHandler{
		sink:       s,
		staleAfter: staleAfter,
		history:    history,
		device:     device,
		mock:       mock,
		logger:     logger,
		listPorts:  serial.ListPorts,
		now:        time.Now,
	}
}

// CurrentReading 当前读数
// GET /api/v1/reading
func (h *ReadingHandler) CurrentReading(c *gin.Context) {
	value, updated := h.sink.Read()
	resp := gin.H{
		"value":        value,
		"device":       h.device,
		"mock":         h.mock,
		"stale":        h.sink.Stale(h.staleAfter, h.now()),
		"last_updated": nil,
	}
	if !updated.IsZero() {
		resp["last_updated"] = updated
	}
	c.JSON(http.StatusOK, resp)
}

// ListReadings 历史读数（倒序）
// GET /api/v1/readings?limit=100&since=2024-03-15T00:00:00Z
func (h *ReadingHandler) ListReadings(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reading history is not configured"})
		return
	}

	limit := 0
	if v := c.Query(QueryLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	since, err := parseSince(c.Query(QuerySince))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since: " + err.Error()})
		return
	}

	list, err := h.history.ListReadings(c.Request.Context(), since, limit)
	if err != nil {
		h.logger.Error("list readings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"readings": list, "count": len(list)})
}

// LatestStored 历史存储中的最新读数
// GET /api/v1/readings/latest
func (h *ReadingHandler) LatestStored(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reading history is not configured"})
		return
	}
	r, err := h.history.LatestReading(c.Request.Context())
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reading stored yet"})
		return
	}
	if err != nil {
		h.logger.Error("latest reading failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListPorts 当前系统可用串口（诊断用）
// GET /api/v1/ports
func (h *ReadingHandler) ListPorts(c *gin.Context) {
	ports, err := h.listPorts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": h.device, "ports": ports})
}

func parseSince(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	return time.Parse(time.RFC3339, v)
}
