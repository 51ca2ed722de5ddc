package plant

import (
	"bytes"
	"errors"
)

var (
	ErrShortPacket    = errors.New("short packet")
	ErrNoStartMarker  = errors.New("start marker not found")
	ErrIncomplete     = errors.New("incomplete frame")
	ErrTruncatedFrame = errors.New("truncated frame")
	ErrPayloadTooLong = errors.New("payload too long")
)

// ValidateAndExtract 校验整段响应并取出固定偏移处的读数
// 校验覆盖全部收到的字节（含末尾校验字节），结果必须为 0；
// 校验通过但长度不足 offset+1 时返回 ErrTruncatedFrame。
func ValidateAndExtract(resp []byte, offset int) (Reading, error) {
	if err := VerifyChecksum(resp); err != nil {
		return 0, err
	}
	if offset < 0 || len(resp) < offset+1 {
		return 0, ErrTruncatedFrame
	}
	return Reading(resp[offset]), nil
}

// Parse 解析一帧（跳过起始标记前的无效字节，严格校验 CRC）
func Parse(raw []byte) (*Message, error) {
	if len(raw) < MinFrameLen {
		return nil, ErrShortPacket
	}
	start := bytes.IndexByte(raw, StartMarker)
	if start < 0 {
		return nil, ErrNoStartMarker
	}
	frame := raw[start:]
	total, ok := frameLen(frame)
	if !ok || len(frame) < total {
		return nil, ErrIncomplete
	}
	if err := VerifyChecksum(frame[:total]); err != nil {
		return nil, err
	}
	return decode(frame[:total]), nil
}

// FrameComplete 判断缓冲区中是否已包含一个完整帧（不做 CRC 校验）
func FrameComplete(buf []byte) bool {
	start := bytes.IndexByte(buf, StartMarker)
	if start < 0 {
		return false
	}
	total, ok := frameLen(buf[start:])
	return ok && len(buf)-start >= total
}

// frameLen 由帧头计算整帧长度，帧头不足 3 字节时返回 false
func frameLen(frame []byte) (int, bool) {
	if len(frame) < PayloadOffset {
		return 0, false
	}
	return MinFrameLen + int(frame[2]), true
}

func decode(frame []byte) *Message {
	n := int(frame[2])
	msg := &Message{Code: Code(frame[1])}
	if n > 0 {
		msg.Payload = append([]byte(nil), frame[PayloadOffset:PayloadOffset+n]...)
	}
	return msg
}

// StreamDecoder 处理半包/粘包的流式解码器
type StreamDecoder struct {
	buf []byte
}

// NewStreamDecoder 创建流式解码器
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed 追加数据并尽可能解出多帧
func (d *StreamDecoder) Feed(p []byte) []*Message {
	if len(p) == 0 {
		return nil
	}
	d.buf = append(d.buf, p...)
	var msgs []*Message

	for {
		start := bytes.IndexByte(d.buf, StartMarker)
		if start < 0 {
			// 无起始标记，整段丢弃
			d.buf = d.buf[:0]
			return msgs
		}
		d.buf = d.buf[start:]

		total, ok := frameLen(d.buf)
		if !ok || len(d.buf) < total {
			return msgs
		}
		if VerifyChecksum(d.buf[:total]) != nil {
			// 校验失败，向后滑动一个字节重新同步
			d.buf = d.buf[1:]
			continue
		}
		msgs = append(msgs, decode(d.buf[:total]))
		d.buf = d.buf[total:]
	}
}

// Buffered 当前缓存的未解析字节数
func (d *StreamDecoder) Buffered() int {
	return len(d.buf)
}
