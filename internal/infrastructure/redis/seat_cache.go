package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// SeatCache は公演ごとの状態別座席数をキャッシュする
// 正本は常にデータベースで、仮押さえ・確定・回収のたびに無効化される
type SeatCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeatCache は新しいSeatCacheインスタンスを作成する
func NewSeatCache(client *redis.Client, ttl time.Duration) *SeatCache {
	return &SeatCache{client: client, ttl: ttl}
}

// GetCounts は公演の状態別座席数をキャッシュから取得する
func (c *SeatCache) GetCounts(ctx context.Context, showID string) (map[seat.Status]int, error) {
	vals, err := c.client.HGetAll(ctx, c.countsKey(showID)).Result()
	if err != nil {
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrCacheMiss
	}

	counts := make(map[seat.Status]int, len(vals))
	for field, raw := range vals {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("キャッシュ値が不正です: %s=%q", field, raw)
		}
		counts[seat.Status(field)] = n
	}
	return counts, nil
}

// SetCounts は公演の状態別座席数をキャッシュに保存する
func (c *SeatCache) SetCounts(ctx context.Context, showID string, counts map[seat.Status]int) error {
	key := c.countsKey(showID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			string(seat.StatusAvailable), counts[seat.StatusAvailable],
			string(seat.StatusHeld), counts[seat.StatusHeld],
			string(seat.StatusBooked), counts[seat.StatusBooked],
		)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は公演のキャッシュを無効化する
func (c *SeatCache) Invalidate(ctx context.Context, showIDs ...string) error {
	if len(showIDs) == 0 {
		return nil
	}
	keys := make([]string, len(showIDs))
	for i, id := range showIDs {
		keys[i] = c.countsKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *SeatCache) countsKey(showID string) string {
	return fmt.Sprintf("seats:counts:%s", showID)
}
