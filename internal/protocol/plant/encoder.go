package plant

// BuildRequest 构造测量请求帧：3A 01 00 + CRC8
func BuildRequest() []byte {
	return BuildChecksummed(requestCommand)
}

// Build 构造任意消息帧（与 Parse 对应）
func Build(code Code, payload []byte) ([]byte, error) {
	if len(payload) > 0xFF {
		return nil, ErrPayloadTooLong
	}
	buf := make([]byte, 0, MinFrameLen+len(payload))
	buf = append(buf, StartMarker, byte(code), byte(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, Checksum(buf))
	return buf, nil
}
