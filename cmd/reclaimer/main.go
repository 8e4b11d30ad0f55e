// reclaimer は期限切れの仮押さえを回収するワーカーを単独で動かす
// 複数起動した場合は Redis のロックで同時に走るティックを1つに絞る
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-seat-reservation/internal/bootstrap"
	"github.com/sanosuguru/go-show-seat-reservation/internal/config"
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

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("メトリクスサーバー起動エラー", zap.Error(err))
		}
	}()

	log.Info("回収ワーカー起動",
		zap.Duration("interval", cfg.Booking.ReclaimInterval),
		zap.String("components", infra.Describe()),
	)
	bootstrap.NewReclaimer(cfg, infra, svc).Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("回収ワーカーを停止しました")
}
