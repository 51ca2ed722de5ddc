package gormrepo

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	"github.com/taoyao-code/plant-collector/internal/storage"
	"github.com/taoyao-code/plant-collector/internal/storage/models"
)

// Repository 基于 GORM 的 ReadingRepo 实现（database.driver: gorm）
type Repository struct {
	db *gorm.DB
}

var _ storage.ReadingRepo = (*Repository)(nil)

// New 返回一个使用给定 *gorm.DB 的 ReadingRepo 实例。
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Open 通过 gorm postgres 驱动连接数据库并配置连接池
func Open(cfg cfgpkg.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if logger != nil {
		logger.Info("gorm database opened", zap.Int("max_open_conns", cfg.MaxOpenConns))
	}
	return db, nil
}

// AutoMigrate 按模型建表（迁移文件之外的备用路径）
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.Reading{})
}

// Ping 检查底层连接
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record 写入读数，cycle_id 冲突时忽略。
func (r *Repository) Record(ctx context.Context, rd models.Reading) error {
	rd.ID = 0
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cycle_id"}},
			DoNothing: true,
		}).
		Create(&rd).Error
}

// LatestReading 最近一条读数。
func (r *Repository) LatestReading(ctx context.Context) (*models.Reading, error) {
	var rd models.Reading
	err := r.db.WithContext(ctx).Order("read_at DESC, id DESC").First(&rd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// ListReadings 按采集时间倒序返回 since 之后的读数。
func (r *Repository) ListReadings(ctx context.Context, since time.Time, limit int) ([]models.Reading, error) {
	readings := make([]models.Reading, 0)
	err := r.db.WithContext(ctx).
		Where("read_at >= ?", since).
		Order("read_at DESC, id DESC").
		Limit(storage.NormalizeLimit(limit)).
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}
