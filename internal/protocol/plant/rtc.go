package plant

import (
	"errors"
	"time"
)

// TimePayloadLen RTC 时间负载长度
// 布局：year(世纪内 0-99) | month | dayOfMonth | dayOfWeek(1-7，周一为 1) | hours | minutes | seconds
const TimePayloadLen = 7

var ErrBadTimePayload = errors.New("bad rtc time payload")

// EncodeTime 将时间编码为 RTC 负载（按 t 所在时区的本地字段）
func EncodeTime(t time.Time) []byte {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return []byte{
		byte(t.Year() % 100),
		byte(t.Month()),
		byte(t.Day()),
		byte(wd),
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
	}
}

// DecodeTime 解析 RTC 负载，年份按 2000+year 处理
func DecodeTime(payload []byte, loc *time.Location) (time.Time, error) {
	if len(payload) != TimePayloadLen {
		return time.Time{}, ErrBadTimePayload
	}
	year, month, day := int(payload[0]), int(payload[1]), int(payload[2])
	hour, minute, sec := int(payload[4]), int(payload[5]), int(payload[6])
	if year > 99 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, ErrBadTimePayload
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(2000+year, time.Month(month), day, hour, minute, sec, 0, loc), nil
}

// BuildGetTime 构造读取 RTC 请求
func BuildGetTime() []byte {
	b, _ := Build(CodeGetRTCTime, nil)
	return b
}

// BuildSetTime 构造设置 RTC 请求
func BuildSetTime(t time.Time) []byte {
	b, _ := Build(CodeSetRTCTime, EncodeTime(t))
	return b
}

// TimeFromMessage 从 RTCTime 回复中取出时间
func TimeFromMessage(m *Message, loc *time.Location) (time.Time, error) {
	if err := m.DeviceError(); err != nil {
		return time.Time{}, err
	}
	if m.Code != CodeRTCTime {
		return time.Time{}, ErrBadTimePayload
	}
	return DecodeTime(m.Payload, loc)
}
