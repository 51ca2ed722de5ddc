package serial

import (
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultPath 未配置设备路径时使用的默认串口
const DefaultPath = "COM3"

// EnvDevice 设备路径环境变量
const EnvDevice = "PLANT_DEVICE"

// ResolvePath 选择串口设备路径
// 配置缺失或不是合法 UTF-8 文本时记录告警并回退到 DefaultPath，永不失败。
func ResolvePath(configured string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case configured == "":
		logger.Warn("serial device not configured, using default",
			zap.String("env", EnvDevice), zap.String("default", DefaultPath))
		return DefaultPath
	case !utf8.ValidString(configured):
		logger.Warn("serial device is not valid unicode, using default",
			zap.String("env", EnvDevice), zap.String("default", DefaultPath))
		return DefaultPath
	}
	return configured
}
