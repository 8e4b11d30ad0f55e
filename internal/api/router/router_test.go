package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-seat-reservation/internal/api"
	"github.com/sanosuguru/go-show-seat-reservation/internal/application"
	"github.com/sanosuguru/go-show-seat-reservation/internal/config"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/metrics"
)

const testShowID = "550e8400-e29b-41d4-a716-446655440000"

type stubBookings struct{}

func (stubBookings) Reserve(_ context.Context, in application.ReserveInput) (*booking.ReserveResult, error) {
	if in.SeatNumbers[0] == "taken" {
		return booking.Failed(booking.FailureSeatBooked), nil
	}
	return booking.Pending("b-1", time.Now().Add(time.Minute), in.SeatNumbers), nil
}

func (stubBookings) Confirm(_ context.Context, id string) (*booking.Booking, error) {
	return nil, booking.ErrBookingExpired
}

func (stubBookings) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	return nil, booking.ErrBookingNotFound
}

type stubShows struct{}

func (stubShows) CreateShow(_ context.Context, in application.CreateShowInput) (*show.Show, error) {
	return &show.Show{ID: testShowID, Name: in.Name, StartTime: in.StartTime, TotalSeats: in.TotalSeats}, nil
}

func (stubShows) ListShows(_ context.Context, limit, offset int) ([]*show.Summary, error) {
	return []*show.Summary{}, nil
}

func (stubShows) GetShow(_ context.Context, id string) (*application.ShowDetail, error) {
	return nil, show.ErrShowNotFound
}

func (stubShows) GetAvailability(_ context.Context, id string) (map[seat.Status]int, error) {
	return map[seat.Status]int{seat.StatusAvailable: 3}, nil
}

func newTestRouter() http.Handler {
	return New(Deps{
		Bookings:    stubBookings{},
		Shows:       stubShows{},
		Metrics:     metrics.NewWithRegistry(prometheus.NewRegistry()),
		MetricsAuth: config.MetricsConfig{User: "u", Password: "p"},
	})
}

func TestNew_Routes(t *testing.T) {
	e := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"ヘルスチェック", http.MethodGet, "/health", "", http.StatusOK},
		{"公演作成", http.MethodPost, "/api/v1/shows", `{"name":"夜公演","start_time":"2026-12-24T19:00:00Z","total_seats":3}`, http.StatusCreated},
		{"公演一覧", http.MethodGet, "/api/v1/shows", "", http.StatusOK},
		{"公演詳細", http.MethodGet, "/api/v1/shows/" + testShowID, "", http.StatusNotFound},
		{"空席数", http.MethodGet, "/api/v1/shows/" + testShowID + "/availability", "", http.StatusOK},
		{"仮押さえ成功", http.MethodPost, "/api/v1/bookings", `{"show_id":"` + testShowID + `","seat_numbers":["1"]}`, http.StatusCreated},
		{"仮押さえ失敗", http.MethodPost, "/api/v1/bookings", `{"show_id":"` + testShowID + `","seat_numbers":["taken"]}`, http.StatusConflict},
		{"入力エラー", http.MethodPost, "/api/v1/bookings", `{"seat_numbers":["1"]}`, http.StatusBadRequest},
		{"予約取得", http.MethodGet, "/api/v1/bookings/b-1", "", http.StatusNotFound},
		{"予約確定", http.MethodPost, "/api/v1/bookings/b-1/confirm", "", http.StatusGone},
		{"メトリクスは認証必須", http.MethodGet, "/metrics", "", http.StatusUnauthorized},
		{"未定義ルート", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestNew_ErrorFormat(t *testing.T) {
	e := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/b-1/confirm", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusGone, resp.Code)
	assert.Equal(t, booking.ErrBookingExpired.Error(), resp.Error)
	assert.NotEmpty(t, resp.RequestID)
}

func TestNew_WithoutMetrics(t *testing.T) {
	e := New(Deps{Bookings: stubBookings{}, Shows: stubShows{}})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
