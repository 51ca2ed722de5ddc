package serial

import (
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// PortInfo 可用串口信息
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// allow tests to override the system enumerator
var listDetailedPorts = enumerator.GetDetailedPortsList

// ListPorts 枚举当前系统可用串口（只读）
func ListPorts() ([]PortInfo, error) {
	details, err := listDetailedPorts()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}

// LogAvailablePorts 打开失败后的诊断输出：列出可用串口
func LogAvailablePorts(logger *zap.Logger) {
	ports, err := ListPorts()
	if err != nil {
		logger.Warn("no available serial ports", zap.Error(err))
		return
	}
	if len(ports) == 0 {
		logger.Warn("no available serial ports")
		return
	}
	for _, p := range ports {
		if p.IsUSB {
			logger.Info("available serial port",
				zap.String("name", p.Name),
				zap.String("type", "usb"),
				zap.String("vid", p.VID),
				zap.String("pid", p.PID),
				zap.String("serial_number", p.SerialNumber),
				zap.String("product", p.Product))
			continue
		}
		logger.Info("available serial port", zap.String("name", p.Name), zap.String("type", "unknown"))
	}
}
