package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	redisinfra "github.com/sanosuguru/go-show-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/logger"
)

// Reclaimer は期限切れの仮押さえを回収するインターフェース
type Reclaimer interface {
	ReclaimExpired(ctx context.Context) (int, error)
}

// TickGuard は回収ティックをインスタンス間で排他する
// 取得できない場合は redis.ErrLockNotAcquired を返す
type TickGuard interface {
	Acquire(ctx context.Context) (func(context.Context) error, error)
}

// ExpiryReclaimer は一定間隔で期限切れの仮押さえを回収するワーカー
type ExpiryReclaimer struct {
	reclaimer Reclaimer
	interval  time.Duration
	guard     TickGuard
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
}

// NewExpiryReclaimer は新しいワーカーを作成
// guard が nil の場合は排他せずに毎回回収する
func NewExpiryReclaimer(r Reclaimer, interval time.Duration, guard TickGuard) *ExpiryReclaimer {
	return &ExpiryReclaimer{
		reclaimer: r,
		interval:  interval,
		guard:     guard,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はワーカーを開始し、停止されるまでブロックする
// 開始直後に1回回収してから一定間隔で繰り返す
func (w *ExpiryReclaimer) Start(ctx context.Context) {
	logger.Info("期限切れ回収ワーカー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ回収ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れ回収ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// Stop はワーカーを停止し、実行中のティックの終了を待つ
func (w *ExpiryReclaimer) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// tick は1回分の回収を行う
// エラーはログに記録し、次のティックで再試行する
func (w *ExpiryReclaimer) tick(ctx context.Context) {
	log := logger.Get()

	if w.guard != nil {
		release, err := w.guard.Acquire(ctx)
		switch {
		case errors.Is(err, redisinfra.ErrLockNotAcquired):
			log.Debug("他のインスタンスが回収中のためスキップ")
			return
		case err != nil:
			// 取得に失敗しても回収は行う
			log.Warn("回収ロックの取得に失敗", zap.Error(err))
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("回収ロックの解放に失敗", zap.Error(err))
				}
			}()
		}
	}

	count, err := w.reclaimer.ReclaimExpired(ctx)
	if err != nil {
		log.Error("期限切れ回収に失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れの予約を回収", zap.Int("count", count))
	} else {
		log.Debug("期限切れの予約なし")
	}
}
