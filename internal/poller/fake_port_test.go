package poller

import (
	"errors"
	"sync"
	"time"
)

// scriptedPort 每次 Write 后把下一段回复放入读缓冲；没有数据时 Read 阻塞到读超时
type scriptedPort struct {
	mu      sync.Mutex
	replies [][]byte
	pending []byte
	written [][]byte
	timeout time.Duration
	closed  bool
}

func (f *scriptedPort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errors.New("port closed")
	}
	f.written = append(f.written, append([]byte(nil), p...))
	if len(f.replies) > 0 {
		f.pending = append(f.pending, f.replies[0]...)
		f.replies = f.replies[1:]
	}
	return len(p), nil
}

func (f *scriptedPort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.pending) == 0 {
		timeout := f.timeout
		f.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	f.mu.Unlock()
	return n, nil
}

func (f *scriptedPort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	f.timeout = t
	f.mu.Unlock()
	return nil
}

func (f *scriptedPort) ResetInputBuffer() error { return nil }

func (f *scriptedPort) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *scriptedPort) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}
