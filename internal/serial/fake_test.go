package serial

import (
	"errors"
	"sync"
	"time"
)

// fakePort 脚本化串口：每次 Write 后把下一段脚本放入读缓冲
type fakePort struct {
	mu       sync.Mutex
	written  [][]byte
	replies  [][]byte
	pending  []byte
	chunk    int // 每次 Read 最多返回的字节数，0 表示不限制
	timeout  time.Duration
	writeErr error
	readErr  error
	resets   int
	closed   bool
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	if len(f.replies) > 0 {
		f.pending = append(f.pending, f.replies[0]...)
		f.replies = f.replies[1:]
	}
	return len(p), nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.readErr != nil {
		f.mu.Unlock()
		return 0, f.readErr
	}
	if len(f.pending) == 0 {
		timeout := f.timeout
		f.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	n := len(f.pending)
	if f.chunk > 0 && n > f.chunk {
		n = f.chunk
	}
	n = copy(p, f.pending[:n])
	f.pending = f.pending[n:]
	f.mu.Unlock()
	return n, nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = t
	return nil
}

func (f *fakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	return nil
}
