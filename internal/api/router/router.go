package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-show-seat-reservation/internal/api"
	"github.com/sanosuguru/go-show-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-show-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-show-seat-reservation/internal/config"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/metrics"
)

// Deps はルーティングに必要な依存
type Deps struct {
	Bookings     handler.BookingServiceInterface
	Shows        handler.ShowServiceInterface
	HealthChecks map[string]handler.Pinger
	// Metrics が nil の場合は /metrics を公開しない
	Metrics     *metrics.Metrics
	MetricsAuth config.MetricsConfig
}

// New はミドルウェアとルートを設定したEchoインスタンスを作成する
func New(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, deps.Metrics)

	health := handler.NewHealthHandler(deps.HealthChecks)
	e.GET("/health", health.Check)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(deps.MetricsAuth))
	}

	v1 := e.Group("/api/v1")

	shows := handler.NewShowHandler(deps.Shows)
	v1.POST("/shows", shows.Create)
	v1.GET("/shows", shows.List)
	v1.GET("/shows/:id", shows.GetByID)
	v1.GET("/shows/:id/availability", shows.Availability)

	bookings := handler.NewBookingHandler(deps.Bookings)
	v1.POST("/bookings", bookings.Reserve)
	v1.GET("/bookings/:id", bookings.GetByID)
	v1.POST("/bookings/:id/confirm", bookings.Confirm)

	return e
}
