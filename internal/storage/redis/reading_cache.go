package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/plant-collector/internal/storage"
	"github.com/taoyao-code/plant-collector/internal/storage/models"
)

const (
	latestKey  = "reading:latest"  // String，最新读数 JSON
	historyKey = "reading:history" // List，LPUSH 最新在前，LTRIM 保留 historyLen 条
)

// ReadingCache 最新读数缓存与有限长度历史
type ReadingCache struct {
	client     *Client
	prefix     string
	historyLen int64
}

var _ storage.ReadingRepo = (*ReadingCache)(nil)

// NewReadingCache 创建读数缓存，historyLen<=0 时只保存最新值
func NewReadingCache(client *Client, prefix string, historyLen int64) *ReadingCache {
	return &ReadingCache{client: client, prefix: prefix, historyLen: historyLen}
}

func (c *ReadingCache) key(k string) string { return c.prefix + k }

// Record 覆盖最新值并追加到历史
func (c *ReadingCache) Record(ctx context.Context, r models.Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(latestKey), data, 0)
	if c.historyLen > 0 {
		pipe.LPush(ctx, c.key(historyKey), data)
		pipe.LTrim(ctx, c.key(historyKey), 0, c.historyLen-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// LatestReading 最新读数
func (c *ReadingCache) LatestReading(ctx context.Context) (*models.Reading, error) {
	data, err := c.client.Get(ctx, c.key(latestKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r models.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal reading: %w", err)
	}
	return &r, nil
}

// ListReadings 从历史列表读取，列表本身已按写入倒序
func (c *ReadingCache) ListReadings(ctx context.Context, since time.Time, limit int) ([]models.Reading, error) {
	limit = storage.NormalizeLimit(limit)
	raw, err := c.client.LRange(ctx, c.key(historyKey), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return filterHistory(raw, since, limit), nil
}

// filterHistory 解析历史列表，跳过损坏条目；遇到早于 since 的条目即停止
func filterHistory(raw []string, since time.Time, limit int) []models.Reading {
	out := make([]models.Reading, 0, min(len(raw), limit))
	for _, item := range raw {
		var r models.Reading
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		if r.ReadAt.Before(since) {
			break
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}
