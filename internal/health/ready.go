package health

import "sync/atomic"

// Readiness 进程级就绪标记（HTTP 监听、调度器），供 /readyz 使用
type Readiness struct {
	httpReady      atomic.Bool
	schedulerReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetHTTPReady(v bool)      { r.httpReady.Store(v) }
func (r *Readiness) SetSchedulerReady(v bool) { r.schedulerReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.httpReady.Load() && r.schedulerReady.Load()
}
