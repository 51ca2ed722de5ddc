package plant

import (
	"errors"
	"fmt"
)

// Code 传感器消息码
type Code uint8

const (
	CodeUndefined          Code = 0
	CodeMeasurementRequest Code = 1
	CodeMeasurementResult  Code = 2
	CodeGetRTCTime         Code = 3
	CodeRTCTime            Code = 4
	CodeSetRTCTime         Code = 5
	CodeSetWakeUpInterval  Code = 6
	CodeHardwareError      Code = 253
	CodeBadCRC             Code = 254
	CodeBadRequest         Code = 255
)

func (c Code) String() string {
	switch c {
	case CodeMeasurementRequest:
		return "measurement_request"
	case CodeMeasurementResult:
		return "measurement_result"
	case CodeGetRTCTime:
		return "get_rtc_time"
	case CodeRTCTime:
		return "rtc_time"
	case CodeSetRTCTime:
		return "set_rtc_time"
	case CodeSetWakeUpInterval:
		return "set_wakeup_interval"
	case CodeHardwareError:
		return "hardware_error"
	case CodeBadCRC:
		return "bad_crc"
	case CodeBadRequest:
		return "bad_request"
	default:
		return fmt.Sprintf("code_%d", uint8(c))
	}
}

// Message 传感器协议帧
// 布局：start(0x3A) | code[1] | payloadLen[1] | payload[payloadLen] | crc8[1]
type Message struct {
	Code    Code
	Payload []byte
}

const (
	// StartMarker 帧起始标记
	StartMarker byte = 0x3A
	// MinFrameLen 最短帧长度（无负载）
	MinFrameLen = 4
	// PayloadOffset 负载在帧内的偏移
	PayloadOffset = 3
	// ReadingOffset 测量结果帧中读数字节的固定偏移
	ReadingOffset = PayloadOffset
	// ResponseCapacity 单次响应读取上限
	ResponseCapacity = 32
	// DefaultReading 未完成任何交换前的读数
	DefaultReading = 255
)

// requestCommand 测量请求命令（不含校验）
var requestCommand = []byte{StartMarker, byte(CodeMeasurementRequest), 0x00}

// Reading 土壤湿度原始读数（0-255）
type Reading uint8

// DeviceError 传感器主动回复的错误帧
type DeviceError struct {
	Code Code
}

func (e *DeviceError) Error() string {
	return "device reported " + e.Code.String()
}

// DeviceError 若消息为设备错误码（253/254/255）则返回 *DeviceError
func (m *Message) DeviceError() error {
	switch m.Code {
	case CodeHardwareError, CodeBadCRC, CodeBadRequest:
		return &DeviceError{Code: m.Code}
	}
	return nil
}

// IsDeviceError 判断 err 是否为设备错误帧
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
