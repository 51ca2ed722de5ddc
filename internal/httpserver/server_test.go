package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	appmetrics "github.com/taoyao-code/plant-collector/internal/metrics"
	"github.com/taoyao-code/plant-collector/internal/sink"
)

func testCfg() cfgpkg.HTTPConfig {
	return cfgpkg.HTTPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthzReadyzMetrics(t *testing.T) {
	reg := appmetrics.NewRegistry()
	appmetrics.NewAppMetrics(reg, sink.New(255))
	srv := New(testCfg(), "/metrics", appmetrics.Handler(reg), func() bool { return true }, zap.NewNop())

	if rr := get(t, srv.Handler(), "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("/healthz code=%d", rr.Code)
	}
	if rr := get(t, srv.Handler(), "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("/readyz code=%d", rr.Code)
	}

	rr := get(t, srv.Handler(), "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics code=%d", rr.Code)
	}
	assert.Contains(t, rr.Body.String(), "ground_mousture 255")
}

func TestReadyzNotReady(t *testing.T) {
	srv := New(testCfg(), "", nil, func() bool { return false }, nil)

	if rr := get(t, srv.Handler(), "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz not-ready code=%d", rr.Code)
	}
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/metrics").Code)
}

func TestRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := New(testCfg(), "/metrics", nil, nil, nil)
	srv.Register(func(r gin.IRouter) {
		r.GET("/api/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	})

	rr := get(t, srv.Handler(), "/api/v1/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestListenServeShutdown(t *testing.T) {
	srv := New(testCfg(), "/metrics", nil, nil, nil)
	require.NoError(t, srv.Listen())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func TestListen_AddressInUse(t *testing.T) {
	first := New(testCfg(), "", nil, nil, nil)
	require.NoError(t, first.Listen())
	defer first.ln.Close()

	cfg := testCfg()
	cfg.Addr = first.Addr()
	second := New(cfg, "", nil, nil, nil)
	err := second.Listen()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "address already in use") || strings.Contains(err.Error(), "bind"))
}
