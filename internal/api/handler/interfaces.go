package handler

import (
	"context"

	"github.com/sanosuguru/go-show-seat-reservation/internal/application"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/show"
)

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	Reserve(ctx context.Context, input application.ReserveInput) (*booking.ReserveResult, error)
	Confirm(ctx context.Context, bookingID string) (*booking.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error)
}

// ShowServiceInterface は公演サービスのインターフェース
type ShowServiceInterface interface {
	CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error)
	ListShows(ctx context.Context, limit, offset int) ([]*show.Summary, error)
	GetShow(ctx context.Context, id string) (*application.ShowDetail, error)
	GetAvailability(ctx context.Context, id string) (map[seat.Status]int, error)
}
