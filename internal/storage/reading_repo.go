package storage

import (
	"context"
	"errors"
	"time"

	"github.com/taoyao-code/plant-collector/internal/storage/models"
)

// ErrNotFound 尚无任何读数记录
var ErrNotFound = errors.New("reading not found")

// ReadingRepo 读数存储抽象，pgx、GORM 与 Redis 各有一个实现。
// 约束：
// - Record 对同一 CycleID 幂等
// - ListReadings 按 ReadAt 倒序，limit<=0 时使用 DefaultListLimit
type ReadingRepo interface {
	// Record 写入一条成功采集的读数
	Record(ctx context.Context, r models.Reading) error
	// LatestReading 最近一条读数，无记录时返回 ErrNotFound
	LatestReading(ctx context.Context) (*models.Reading, error)
	// ListReadings 返回 ReadAt >= since 的读数
	ListReadings(ctx context.Context, since time.Time, limit int) ([]models.Reading, error)
}

const (
	// DefaultListLimit 未指定 limit 时的条数
	DefaultListLimit = 100
	// MaxListLimit 单次查询上限
	MaxListLimit = 1000
)

// NormalizeLimit 将 limit 限制在 [1, MaxListLimit]
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
