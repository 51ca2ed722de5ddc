package sink

import (
	"sync/atomic"
	"time"
)

// Sink 最近一次成功采集的读数
// 采集任务写、HTTP 处理器读，只使用原子操作，不存在跨 I/O 的临界区。
type Sink struct {
	state atomic.Pointer[snapshot]
}

type snapshot struct {
	value     int64
	updatedAt time.Time // 零值表示尚未成功采集
}

// New 创建 Sink，initial 为首次成功采集前对外暴露的值
func New(initial int64) *Sink {
	s := &Sink{}
	s.state.Store(&snapshot{value: initial})
	return s
}

// Set 覆盖当前读数并记录时间
func (s *Sink) Set(v int64) {
	s.SetAt(v, time.Now())
}

// SetAt 覆盖当前读数，使用给定时间作为更新时间
func (s *Sink) SetAt(v int64, at time.Time) {
	s.state.Store(&snapshot{value: v, updatedAt: at})
}

// Snapshot 当前读数
func (s *Sink) Snapshot() int64 {
	return s.state.Load().value
}

// LastUpdated 最近一次 Set 的时间，从未更新时返回零值
func (s *Sink) LastUpdated() time.Time {
	return s.state.Load().updatedAt
}

// Read 同时返回读数与更新时间（来自同一快照）
func (s *Sink) Read() (int64, time.Time) {
	st := s.state.Load()
	return st.value, st.updatedAt
}

// Stale 读数是否过期；从未更新过视为过期
func (s *Sink) Stale(maxAge time.Duration, now time.Time) bool {
	at := s.LastUpdated()
	if at.IsZero() {
		return true
	}
	return maxAge > 0 && now.Sub(at) > maxAge
}
