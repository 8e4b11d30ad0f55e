package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-show-seat-reservation/internal/api/router"
	"github.com/sanosuguru/go-show-seat-reservation/internal/bootstrap"
	"github.com/sanosuguru/go-show-seat-reservation/internal/config"
	redisinfra "github.com/sanosuguru/go-show-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal("起動に失敗しました", zap.Error(err))
	}
	defer infra.Close()

	m := metrics.Init()
	svc := bootstrap.NewServices(cfg, infra, m)

	checks := map[string]handler.Pinger{"postgres": infra.DB}
	if infra.Redis != nil {
		client := infra.Redis
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisinfra.Ping(ctx, client)
		})
	}

	e := router.New(router.Deps{
		Bookings:     svc.Reservations,
		Shows:        svc.Shows,
		HealthChecks: checks,
		Metrics:      m,
		MetricsAuth:  cfg.Metrics,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	workerDone := make(chan struct{})
	if cfg.Booking.ReclaimWorkerEnable {
		reclaimer := bootstrap.NewReclaimer(cfg, infra, svc)
		go func() {
			defer close(workerDone)
			reclaimer.Start(ctx)
		}()
	} else {
		close(workerDone)
		log.Info("期限切れ回収ワーカーは無効です")
	}

	go func() {
		log.Info("サーバー起動",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Env),
			zap.String("components", infra.Describe()),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("サーバー起動エラー", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("回収ワーカーの停止待ちがタイムアウトしました")
	}

	log.Info("サーバーが正常にシャットダウンしました")
}
