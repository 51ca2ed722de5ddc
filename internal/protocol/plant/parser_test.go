package plant

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type frameVectors struct {
	Offset int `yaml:"offset"`
	Cases  []struct {
		Name    string `yaml:"name"`
		Hex     string `yaml:"hex"`
		Reading int    `yaml:"reading"`
		Err     string `yaml:"err"`
	} `yaml:"cases"`
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

func TestValidateAndExtract_Vectors(t *testing.T) {
	raw, err := os.ReadFile("testdata/frames.yaml")
	require.NoError(t, err)
	var vec frameVectors
	require.NoError(t, yaml.Unmarshal(raw, &vec))
	require.NotEmpty(t, vec.Cases)

	for _, tc := range vec.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			got, err := ValidateAndExtract(mustHex(t, tc.Hex), vec.Offset)
			switch tc.Err {
			case "checksum":
				assert.ErrorIs(t, err, ErrChecksumMismatch)
			case "truncated":
				assert.ErrorIs(t, err, ErrTruncatedFrame)
			default:
				require.NoError(t, err)
				assert.Equal(t, Reading(tc.Reading), got)
			}
		})
	}
}

func TestValidateAndExtract_RoundTripAndBitFlip(t *testing.T) {
	payloads := [][]byte{
		{0x3A, 0x02, 0x01, 0xA0},
		{0x3A, 0x02, 0x01, 0x00},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	}
	for _, p := range payloads {
		s := BuildChecksummed(p)
		got, err := ValidateAndExtract(s, ReadingOffset)
		require.NoError(t, err)
		assert.Equal(t, Reading(s[ReadingOffset]), got)

		for i := range s {
			for bit := 0; bit < 8; bit++ {
				flipped := append([]byte(nil), s...)
				flipped[i] ^= 1 << bit
				_, err := ValidateAndExtract(flipped, ReadingOffset)
				assert.ErrorIs(t, err, ErrChecksumMismatch, "byte %d bit %d", i, bit)
			}
		}
	}
}

func TestValidateAndExtract_ShortResponses(t *testing.T) {
	// 所有长度不足 offset+1 且校验为 0 的响应都必须返回截断错误
	for n := 0; n <= ReadingOffset; n++ {
		var resp []byte
		if n > 0 {
			resp = BuildChecksummed(make([]byte, n-1))
		}
		_, err := ValidateAndExtract(resp, ReadingOffset)
		assert.ErrorIs(t, err, ErrTruncatedFrame, "len=%d", n)
	}

	_, err := ValidateAndExtract([]byte{0x00}, -1)
	assert.ErrorIs(t, err, ErrTruncatedFrame)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		code    Code
		payload []byte
		wantErr error
	}{
		{name: "测量结果", raw: "3A 02 01 A0 77", code: CodeMeasurementResult, payload: []byte{0xA0}},
		{name: "前导噪声", raw: "00 11 3A 02 01 A0 77", code: CodeMeasurementResult, payload: []byte{0xA0}},
		{name: "尾随字节", raw: "3A 02 01 A0 77 00 00", code: CodeMeasurementResult, payload: []byte{0xA0}},
		{name: "硬件错误", raw: "3A FD 00 A4", code: CodeHardwareError},
		{name: "RTC时间", raw: "3A 04 07 18 03 0F 05 0C 22 38 2F", code: CodeRTCTime, payload: []byte{0x18, 0x03, 0x0F, 0x05, 0x0C, 0x22, 0x38}},
		{name: "过短", raw: "3A 02 01", wantErr: ErrShortPacket},
		{name: "无起始标记", raw: "00 11 22 33", wantErr: ErrNoStartMarker},
		{name: "半包", raw: "3A 04 07 18 03", wantErr: ErrIncomplete},
		{name: "校验错误", raw: "3A 02 01 A0 78", wantErr: ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(mustHex(t, tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.code, msg.Code)
			assert.Equal(t, tt.payload, msg.Payload)
		})
	}
}

func TestFrameComplete(t *testing.T) {
	full := mustHex(t, "3A 02 01 A0 77")
	for i := 0; i < len(full); i++ {
		assert.False(t, FrameComplete(full[:i]), "prefix %d", i)
	}
	assert.True(t, FrameComplete(full))
	assert.True(t, FrameComplete(append([]byte{0x00, 0x01}, full...)))
	assert.False(t, FrameComplete([]byte{0x00, 0x01, 0x02, 0x03}))
}

func TestStreamDecoder(t *testing.T) {
	d := NewStreamDecoder()

	// 半包
	msgs := d.Feed(mustHex(t, "FF 3A 02"))
	assert.Empty(t, msgs)
	assert.Equal(t, 2, d.Buffered())

	// 补齐并粘包
	msgs = d.Feed(mustHex(t, "01 A0 77 3A FE 00 F1"))
	require.Len(t, msgs, 2)
	assert.Equal(t, CodeMeasurementResult, msgs[0].Code)
	assert.Equal(t, []byte{0xA0}, msgs[0].Payload)
	assert.Equal(t, CodeBadCRC, msgs[1].Code)
	assert.Equal(t, 0, d.Buffered())

	// 坏帧后重新同步
	msgs = d.Feed(mustHex(t, "3A 02 01 A0 00 3A 02 01 2A 85"))
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte{0x2A}, msgs[0].Payload)

	// 无标记数据被丢弃
	assert.Empty(t, d.Feed([]byte{0x01, 0x02}))
	assert.Equal(t, 0, d.Buffered())
}

func TestMessageDeviceError(t *testing.T) {
	for _, code := range []Code{CodeHardwareError, CodeBadCRC, CodeBadRequest} {
		err := (&Message{Code: code}).DeviceError()
		require.Error(t, err)
		assert.True(t, IsDeviceError(err))
		var de *DeviceError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, code, de.Code)
	}
	assert.NoError(t, (&Message{Code: CodeMeasurementResult}).DeviceError())
	assert.False(t, IsDeviceError(ErrChecksumMismatch))
}
