package serial

import (
	"context"
	"io"
	"sync"
	"time"

	bugserial "go.bug.st/serial"
	"golang.org/x/time/rate"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
)

// DefaultBaudRate 传感器固定波特率
const DefaultBaudRate = 9600

// readStep 单次 Read 的最长阻塞时间，用于在等待期间检查 ctx 与截止时间
const readStep = 100 * time.Millisecond

// Port 串口句柄（go.bug.st/serial.Port 的子集）
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// allow tests to override the native open
var openPort = func(name string, mode *bugserial.Mode) (Port, error) {
	p, err := bugserial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Conn 已打开的串口连接，Exchange 串行执行
type Conn struct {
	mu     sync.Mutex
	port   Port
	path   string
	gap    *rate.Limiter
	closed bool

	// Complete 判断已收到的字节是否构成完整帧；为 nil 时读满容量或等到超时
	Complete func([]byte) bool
}

// Open 以 8N1 打开串口；失败返回 *OpenError
func Open(path string, cfg cfgpkg.SerialConfig) (*Conn, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &bugserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	}
	p, err := openPort(path, mode)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return NewConn(p, path, cfg.FrameGap), nil
}

// NewConn 包装已打开的 Port；frameGap>0 时限制两次交换的最小间隔
func NewConn(p Port, path string, frameGap time.Duration) *Conn {
	c := &Conn{port: p, path: path}
	if frameGap > 0 {
		// 桶容量 1：两次请求之间至少间隔 frameGap
		c.gap = rate.NewLimiter(rate.Every(frameGap), 1)
	}
	return c
}

// Path 串口路径
func (c *Conn) Path() string { return c.path }

// Exchange 写出完整请求后读取响应
// 读取在 capacity 字节、完整帧或 timeout 到达时结束；timeout 内一个字节都没收到返回 ErrReadTimeout。
func (c *Conn) Exchange(ctx context.Context, req []byte, capacity int, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if capacity <= 0 {
		capacity = 1
	}
	if c.gap != nil {
		if err := c.gap.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// 丢弃上次交换残留的字节
	_ = c.port.ResetInputBuffer()

	if err := c.writeAll(req); err != nil {
		return nil, err
	}
	return c.read(ctx, capacity, timeout)
}

func (c *Conn) writeAll(req []byte) error {
	for written := 0; written < len(req); {
		n, err := c.port.Write(req[written:])
		if err != nil {
			return &IOError{Op: "write", Err: err}
		}
		if n <= 0 {
			return &IOError{Op: "write", Err: io.ErrShortWrite}
		}
		written += n
	}
	return nil
}

func (c *Conn) read(ctx context.Context, capacity int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, capacity)
	chunk := make([]byte, capacity)

	for len(buf) < capacity {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining > readStep {
			remaining = readStep
		}
		if err := c.port.SetReadTimeout(remaining); err != nil {
			return nil, &IOError{Op: "configure", Err: err}
		}
		n, err := c.port.Read(chunk[:capacity-len(buf)])
		if err != nil {
			return nil, &IOError{Op: "read", Err: err}
		}
		buf = append(buf, chunk[:n]...)
		if n > 0 && c.Complete != nil && c.Complete(buf) {
			break
		}
	}

	if len(buf) == 0 {
		return nil, ErrReadTimeout
	}
	return buf, nil
}

// Close 关闭串口，可重复调用
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.port.Close()
}
