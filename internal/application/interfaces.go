package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
)

// SeatCountCache は公演ごとの状態別座席数のキャッシュ
// 取得できない場合は redis.ErrCacheMiss を返す
type SeatCountCache interface {
	GetCounts(ctx context.Context, showID string) (map[seat.Status]int, error)
	SetCounts(ctx context.Context, showID string, counts map[seat.Status]int) error
	Invalidate(ctx context.Context, showIDs ...string) error
}

// EventPublisher は予約イベントの発行先
// 発行はコミット後に行い、失敗しても結果には影響しない
type EventPublisher interface {
	PublishConfirmed(ctx context.Context, b *booking.Booking) error
	PublishExpired(ctx context.Context, b *booking.Booking, expiredAt time.Time) error
}
