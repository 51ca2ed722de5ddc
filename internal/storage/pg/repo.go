package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/plant-collector/internal/storage"
	"github.com/taoyao-code/plant-collector/internal/storage/models"
)

// Repository 基于 pgx 的读数历史
type Repository struct {
	Pool *pgxpool.Pool
}

var _ storage.ReadingRepo = (*Repository)(nil)

const readingColumns = `id, cycle_id, device, value, mock, read_at, created_at`

// Record 插入读数，cycle_id 冲突时忽略
func (r *Repository) Record(ctx context.Context, rd models.Reading) error {
	const q = `INSERT INTO readings (cycle_id, device, value, mock, read_at)
               VALUES ($1,$2,$3,$4,$5)
               ON CONFLICT (cycle_id) DO NOTHING`
	_, err := r.Pool.Exec(ctx, q, rd.CycleID, rd.Device, rd.Value, rd.Mock, rd.ReadAt)
	return err
}

// LatestReading 最近一条读数
func (r *Repository) LatestReading(ctx context.Context) (*models.Reading, error) {
	q := `SELECT ` + readingColumns + ` FROM readings ORDER BY read_at DESC, id DESC LIMIT 1`
	rd, err := scanReading(r.Pool.QueryRow(ctx, q))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// ListReadings 按采集时间倒序返回 since 之后的读数
func (r *Repository) ListReadings(ctx context.Context, since time.Time, limit int) ([]models.Reading, error) {
	q := `SELECT ` + readingColumns + ` FROM readings
          WHERE read_at >= $1
          ORDER BY read_at DESC, id DESC
          LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, since, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Reading, 0)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rd)
	}
	return out, rows.Err()
}

func scanReading(row pgx.Row) (*models.Reading, error) {
	var rd models.Reading
	if err := row.Scan(&rd.ID, &rd.CycleID, &rd.Device, &rd.Value, &rd.Mock, &rd.ReadAt, &rd.CreatedAt); err != nil {
		return nil, err
	}
	return &rd, nil
}
