package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-seat-reservation/internal/application"
	"github.com/sanosuguru/go-show-seat-reservation/internal/config"
	"github.com/sanosuguru/go-show-seat-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-show-seat-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-show-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-show-seat-reservation/internal/worker"
)

const (
	seatCountTTL       = 30 * time.Second
	reclaimLockKey     = "lock:expiry-reclaimer"
	reclaimLockMinimum = 5 * time.Second
)

// Infra は外部接続の集合
// Redis と Publisher は設定や接続状況により nil になる
type Infra struct {
	DB        *sqlx.DB
	Redis     *redis.Client
	Publisher *rabbitmq.Publisher
}

// Open はデータベースに接続してマイグレーションを適用し、任意の接続を確立する
// Redis と RabbitMQ に接続できない場合は警告を出してそれらなしで続行する
func Open(ctx context.Context, cfg *config.Config) (*Infra, error) {
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("データベース接続完了", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	infra := &Infra{DB: db}

	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("Redisに接続できないためキャッシュと回収ロックを無効化します", zap.Error(err))
		} else {
			infra.Redis = client
		}
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Warn("RabbitMQに接続できないため予約イベントを発行しません", zap.Error(err))
		} else {
			infra.Publisher = pub
		}
	}

	return infra, nil
}

// Close は確立した接続をすべて閉じる
func (i *Infra) Close() {
	if i.Publisher != nil {
		if err := i.Publisher.Close(); err != nil {
			logger.Warn("RabbitMQ切断エラー", zap.Error(err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Warn("Redis切断エラー", zap.Error(err))
		}
	}
	if err := i.DB.Close(); err != nil {
		logger.Warn("データベース切断エラー", zap.Error(err))
	}
}

// SeatCache は Redis が使える場合のみキャッシュを返す
func (i *Infra) SeatCache() application.SeatCountCache {
	if i.Redis == nil {
		return nil
	}
	return redisinfra.NewSeatCache(i.Redis, seatCountTTL)
}

// Services はアプリケーションサービス
type Services struct {
	Reservations *application.ReservationService
	Shows        *application.ShowService
}

// NewServices はリポジトリとサービスを組み立てる
// m が nil の場合は予約メトリクスを記録しない
func NewServices(cfg *config.Config, infra *Infra, m *metrics.Metrics) *Services {
	txm := postgres.NewTxManager(infra.DB)
	seatRepo := postgres.NewSeatRepository(infra.DB)
	bookingRepo := postgres.NewBookingRepository(infra.DB)
	showRepo := postgres.NewShowRepository(infra.DB)

	opts := application.ReservationOptions{
		HoldDuration: cfg.Booking.HoldDuration,
		MaxRetries:   cfg.Booking.MaxRetries,
		RetryBackoff: cfg.Booking.RetryBackoff,
	}
	var options []application.Option
	cache := infra.SeatCache()
	if cache != nil {
		options = append(options, application.WithSeatCache(cache))
	}
	if infra.Publisher != nil {
		options = append(options, application.WithEventPublisher(infra.Publisher))
	}
	if m != nil {
		options = append(options, application.WithMetrics(m))
	}

	return &Services{
		Reservations: application.NewReservationService(txm, bookingRepo, seatRepo, opts, options...),
		Shows:        application.NewShowService(txm, showRepo, seatRepo, cache),
	}
}

// NewReclaimer は期限切れ回収ワーカーを作成する
// Redis がある場合はインスタンス間でティックを排他する
func NewReclaimer(cfg *config.Config, infra *Infra, svc *Services) *worker.ExpiryReclaimer {
	var guard worker.TickGuard
	if infra.Redis != nil {
		ttl := cfg.Booking.ReclaimInterval
		if ttl < reclaimLockMinimum {
			ttl = reclaimLockMinimum
		}
		guard = redisinfra.NewTickGuard(redisinfra.NewLockManager(infra.Redis), reclaimLockKey, ttl)
	}
	return worker.NewExpiryReclaimer(svc.Reservations, cfg.Booking.ReclaimInterval, guard)
}

// Describe は起動ログ用に有効な構成要素を返す
func (i *Infra) Describe() string {
	return fmt.Sprintf("redis=%t rabbitmq=%t", i.Redis != nil, i.Publisher != nil)
}
