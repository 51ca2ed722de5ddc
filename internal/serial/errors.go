package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrReadTimeout 超时时间内未收到任何字节
	ErrReadTimeout = errors.New("serial read timeout")
	// ErrClosed 连接已关闭
	ErrClosed = errors.New("serial connection closed")
)

// OpenError 串口打开失败（设备不存在、被占用等）
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open serial port %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// IOError 交换过程中的读写失败
type IOError struct {
	Op  string // write | read | configure
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsOpenError 判断是否为打开失败
func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}

// IsIOError 判断是否为读写失败
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
