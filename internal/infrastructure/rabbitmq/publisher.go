package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
)

// キュー名（デフォルトエクスチェンジでルーティングキーとして使う）
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingExpired   = "booking.expired"
)

// BookingConfirmedEvent は予約確定時に発行するイベント
type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	ShowID      string    `json:"show_id"`
	UserID      *string   `json:"user_id,omitempty"`
	SeatNumbers []string  `json:"seat_numbers"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// BookingExpiredEvent は期限切れ回収で予約が失敗になったときに発行するイベント
type BookingExpiredEvent struct {
	BookingID string    `json:"booking_id"`
	ShowID    string    `json:"show_id"`
	UserID    *string   `json:"user_id,omitempty"`
	ExpiredAt time.Time `json:"expired_at"`
}

// channel は *amqp.Channel のうち発行に使う部分
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher は予約イベントを RabbitMQ に発行する
// 発行はコミット後のベストエフォートで、失敗しても予約の結果は変わらない
type Publisher struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   channel
}

// NewPublisher はブローカーに接続し、イベント用のキューを宣言する
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗しました: %w", err)
	}
	p, err := newPublisherWithChannel(ch)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisherWithChannel(ch channel) (*Publisher, error) {
	for _, name := range []string{QueueBookingConfirmed, QueueBookingExpired} {
		// durable: ブローカー再起動後もキューを保持する
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("キュー宣言に失敗しました(%s): %w", name, err)
		}
	}
	return &Publisher{ch: ch}, nil
}

// PublishConfirmed は予約確定イベントを発行する
func (p *Publisher) PublishConfirmed(ctx context.Context, b *booking.Booking) error {
	return p.publish(ctx, QueueBookingConfirmed, BookingConfirmedEvent{
		BookingID:   b.ID,
		ShowID:      b.ShowID,
		UserID:      b.UserID,
		SeatNumbers: b.SeatNumbers(),
		ConfirmedAt: b.UpdatedAt.UTC(),
	})
}

// PublishExpired は期限切れで失敗になった予約のイベントを発行する
func (p *Publisher) PublishExpired(ctx context.Context, b *booking.Booking, expiredAt time.Time) error {
	return p.publish(ctx, QueueBookingExpired, BookingExpiredEvent{
		BookingID: b.ID,
		ShowID:    b.ShowID,
		UserID:    b.UserID,
		ExpiredAt: expiredAt.UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// amqp.Channel はゴルーチンセーフではないため発行を直列化する
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("イベント発行に失敗(%s): %w", queue, err)
	}
	return nil
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
