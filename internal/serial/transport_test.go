package serial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bugserial "go.bug.st/serial"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	"github.com/taoyao-code/plant-collector/internal/protocol/plant"
)

func withOpenPort(t *testing.T, fn func(name string, mode *bugserial.Mode) (Port, error)) {
	t.Helper()
	orig := openPort
	openPort = fn
	t.Cleanup(func() { openPort = orig })
}

func TestOpen(t *testing.T) {
	t.Run("打开成功", func(t *testing.T) {
		fp := &fakePort{}
		var gotMode *bugserial.Mode
		withOpenPort(t, func(name string, mode *bugserial.Mode) (Port, error) {
			gotMode = mode
			return fp, nil
		})

		conn, err := Open("/dev/ttyUSB0", cfgpkg.SerialConfig{})
		require.NoError(t, err)
		assert.Equal(t, "/dev/ttyUSB0", conn.Path())
		assert.Equal(t, DefaultBaudRate, gotMode.BaudRate)
		assert.Equal(t, 8, gotMode.DataBits)
		assert.Equal(t, bugserial.NoParity, gotMode.Parity)
		assert.Equal(t, bugserial.OneStopBit, gotMode.StopBits)

		require.NoError(t, conn.Close())
		require.NoError(t, conn.Close(), "重复关闭不应报错")
		assert.True(t, fp.closed)
	})

	t.Run("设备不可用", func(t *testing.T) {
		native := errors.New("no such file or directory")
		withOpenPort(t, func(string, *bugserial.Mode) (Port, error) { return nil, native })

		_, err := Open("COM9", cfgpkg.SerialConfig{BaudRate: 9600})
		require.Error(t, err)
		assert.True(t, IsOpenError(err))
		assert.ErrorIs(t, err, native)
		assert.Contains(t, err.Error(), "COM9")
	})
}

func TestExchange(t *testing.T) {
	ctx := context.Background()
	resp := []byte{0x3A, 0x02, 0x01, 0xA0, 0x77}

	t.Run("完整帧提前结束读取", func(t *testing.T) {
		fp := &fakePort{replies: [][]byte{resp}, chunk: 2}
		conn := NewConn(fp, "test", 0)
		conn.Complete = plant.FrameComplete

		start := time.Now()
		got, err := conn.Exchange(ctx, plant.BuildRequest(), plant.ResponseCapacity, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, resp, got)
		assert.Less(t, time.Since(start), time.Second)
		require.Len(t, fp.written, 1)
		assert.Equal(t, []byte{0x3A, 0x01, 0x00, 0x70}, fp.written[0])
		assert.Equal(t, 1, fp.resets)
	})

	t.Run("读满容量", func(t *testing.T) {
		fp := &fakePort{replies: [][]byte{{1, 2, 3, 4, 5, 6}}}
		conn := NewConn(fp, "test", 0)

		got, err := conn.Exchange(ctx, []byte{0x00}, 4, time.Second)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4}, got)
	})

	t.Run("部分数据在超时后返回", func(t *testing.T) {
		fp := &fakePort{replies: [][]byte{{0x3A, 0x02}}}
		conn := NewConn(fp, "test", 0)
		conn.Complete = plant.FrameComplete

		got, err := conn.Exchange(ctx, plant.BuildRequest(), plant.ResponseCapacity, 150*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x3A, 0x02}, got)
	})

	t.Run("无响应超时", func(t *testing.T) {
		fp := &fakePort{}
		conn := NewConn(fp, "test", 0)

		start := time.Now()
		_, err := conn.Exchange(ctx, plant.BuildRequest(), plant.ResponseCapacity, 150*time.Millisecond)
		assert.ErrorIs(t, err, ErrReadTimeout)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("写失败", func(t *testing.T) {
		fp := &fakePort{writeErr: errors.New("device gone")}
		conn := NewConn(fp, "test", 0)

		_, err := conn.Exchange(ctx, plant.BuildRequest(), plant.ResponseCapacity, time.Second)
		require.Error(t, err)
		assert.True(t, IsIOError(err))
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "write", ioErr.Op)
	})

	t.Run("读失败", func(t *testing.T) {
		fp := &fakePort{readErr: errors.New("i/o error")}
		conn := NewConn(fp, "test", 0)

		_, err := conn.Exchange(ctx, plant.BuildRequest(), plant.ResponseCapacity, time.Second)
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "read", ioErr.Op)
	})

	t.Run("ctx取消", func(t *testing.T) {
		fp := &fakePort{}
		conn := NewConn(fp, "test", 0)
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := conn.Exchange(cctx, plant.BuildRequest(), plant.ResponseCapacity, 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("关闭后交换", func(t *testing.T) {
		conn := NewConn(&fakePort{}, "test", 0)
		require.NoError(t, conn.Close())
		_, err := conn.Exchange(ctx, plant.BuildRequest(), plant.ResponseCapacity, time.Second)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestExchange_FrameGap(t *testing.T) {
	resp := []byte{0x3A, 0x02, 0x01, 0xA0, 0x77}
	fp := &fakePort{replies: [][]byte{resp, resp}}
	conn := NewConn(fp, "test", 200*time.Millisecond)
	conn.Complete = plant.FrameComplete

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := conn.Exchange(context.Background(), plant.BuildRequest(), plant.ResponseCapacity, time.Second)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond, "两次请求之间应保持帧间隔")
}
