package models

import (
	"time"
)

// 注意：
// - 保持与 db/migrations/0001_readings_up.sql 完全对齐
// - 不使用 gorm.Model，显式声明每个字段

// Reading 映射 readings 表，同时作为 Redis 缓存与 API 的 JSON 结构
type Reading struct {
	// 主键
	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id,omitempty"`
	// 采集周期 ID（uuid），用于幂等写入
	CycleID string `gorm:"column:cycle_id;type:text;not null;uniqueIndex" json:"cycle_id"`
	// 读数来源串口
	Device string `gorm:"column:device;type:text;not null" json:"device"`
	// 原始读数 0-255
	Value int16 `gorm:"column:value;not null" json:"value"`
	// 模拟模式写入
	Mock bool `gorm:"column:mock;not null;default:false" json:"mock"`
	// 采集时间
	ReadAt time.Time `gorm:"column:read_at;not null;index" json:"read_at"`
	// 审计字段
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at,omitempty"`
}

func (Reading) TableName() string { return "readings" }
