package plant

import (
	"errors"

	"github.com/sigurn/crc8"
)

var (
	// ErrChecksumMismatch CRC-8 校验失败（含校验字节的整帧 CRC 不为 0）
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// crcTable CRC-8/MAXIM（Dallas/Maxim iButton，多项式 0x31 反射）
var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Checksum 计算 CRC-8/MAXIM 校验值
// 对不带校验字节的数据返回校验值；对末尾已附加正确校验字节的数据返回 0
func Checksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// VerifyChecksum 验证整帧校验（覆盖全部字节，包括末尾校验字节）
func VerifyChecksum(dataWithChecksum []byte) error {
	if Checksum(dataWithChecksum) != 0 {
		return ErrChecksumMismatch
	}
	return nil
}

// BuildChecksummed 为数据追加一个 CRC-8 校验字节
func BuildChecksummed(data []byte) []byte {
	result := make([]byte, len(data)+1)
	copy(result, data)
	result[len(data)] = Checksum(data)
	return result
}
