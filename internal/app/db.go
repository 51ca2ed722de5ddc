package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/plant-collector/internal/config"
	"github.com/taoyao-code/plant-collector/internal/health"
	"github.com/taoyao-code/plant-collector/internal/migrate"
	"github.com/taoyao-code/plant-collector/internal/storage"
	"github.com/taoyao-code/plant-collector/internal/storage/gormrepo"
	pgstorage "github.com/taoyao-code/plant-collector/internal/storage/pg"
)

// History 读数历史存储及其探活、关闭
type History struct {
	Repo   storage.ReadingRepo
	Pinger health.Pinger
	Close  func()
}

// ConnectHistory 按 database.driver 建立历史存储；未启用时返回 nil
func ConnectHistory(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*History, error) {
	if !cfg.Enabled {
		log.Info("database is disabled, reading history off")
		return nil, nil
	}
	switch cfg.Driver {
	case "gorm":
		return connectGorm(cfg, log)
	default:
		return connectPgx(ctx, cfg, log)
	}
}

func connectPgx(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*History, error) {
	pool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		n, err := (migrate.Runner{Dir: cfg.MigrationsDir, Logger: log}).Up(ctx, pool)
		if err != nil {
			log.Error("db migrate error", zap.Error(err))
			pool.Close()
			return nil, err
		}
		log.Info("db migrations applied", zap.Int("count", n))
	}
	return &History{
		Repo:   &pgstorage.Repository{Pool: pool},
		Pinger: pool,
		Close:  pool.Close,
	}, nil
}

func connectGorm(cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*History, error) {
	db, err := gormrepo.Open(cfg, log)
	if err != nil {
		log.Error("db connect error", zap.String("driver", "gorm"), zap.Error(err))
		return nil, err
	}
	repo := gormrepo.New(db)
	if cfg.AutoMigrate {
		if err := repo.AutoMigrate(); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("gorm auto migrate: %w", err)
		}
		log.Info("db schema migrated", zap.String("driver", "gorm"))
	}
	return &History{
		Repo:   repo,
		Pinger: repo,
		Close:  func() { _ = repo.Close() },
	}, nil
}
