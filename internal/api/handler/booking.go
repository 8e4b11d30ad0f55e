package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-show-seat-reservation/internal/application"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type ReserveRequest struct {
	ShowID      string   `json:"show_id" validate:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	SeatNumbers []string `json:"seat_numbers" validate:"required,min=1,dive,required" example:"1,2"`
	UserID      *string  `json:"user_id,omitempty" example:"user-123"`
}

// ReserveResponse は仮押さえ結果
// FAILED の場合は booking_id と expires_at を持たない
type ReserveResponse struct {
	Status    string     `json:"status" example:"PENDING"`
	BookingID string     `json:"booking_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Seats     []string   `json:"seats,omitempty" example:"1,2"`
	Code      string     `json:"code,omitempty" example:"SEAT_HELD"`
	Reason    string     `json:"reason,omitempty" example:"seat is held by another pending booking"`
}

type BookingSeatResponse struct {
	SeatID     string `json:"seat_id"`
	SeatNumber string `json:"seat_number" example:"1"`
}

type BookingResponse struct {
	ID        string                `json:"id"`
	ShowID    string                `json:"show_id"`
	UserID    *string               `json:"user_id"`
	Status    string                `json:"status" example:"CONFIRMED"`
	Seats     []BookingSeatResponse `json:"seats"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func toReserveResponse(r *booking.ReserveResult) ReserveResponse {
	resp := ReserveResponse{Status: string(r.Status), Code: string(r.Code), Reason: r.Reason}
	if r.IsPending() {
		expiresAt := r.ExpiresAt
		resp.BookingID = r.BookingID
		resp.ExpiresAt = &expiresAt
		resp.Seats = r.Seats
	}
	return resp
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	seats := make([]BookingSeatResponse, len(b.Seats))
	for i, s := range b.Seats {
		seats[i] = BookingSeatResponse{SeatID: s.SeatID, SeatNumber: s.SeatNumber}
	}
	return BookingResponse{
		ID: b.ID, ShowID: b.ShowID, UserID: b.UserID, Status: string(b.Status),
		Seats: seats, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

// Reserve godoc
// @Summary 座席を仮押さえ
// @Description 指定した座席を仮押さえします（既定120秒有効）
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string false "ユーザーID"
// @Param request body ReserveRequest true "仮押さえ要求"
// @Success 201 {object} ReserveResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} ReserveResponse "座席を確保できなかった"
// @Failure 503 {object} map[string]string "空席状況を判定できなかった"
// @Router /bookings [post]
func (h *BookingHandler) Reserve(c echo.Context) error {
	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	userID := req.UserID
	if userID == nil {
		if header := c.Request().Header.Get("X-User-ID"); header != "" {
			userID = &header
		}
	}

	result, err := h.service.Reserve(c.Request().Context(), application.ReserveInput{
		ShowID: req.ShowID, SeatNumbers: req.SeatNumbers, UserID: userID,
	})
	if err != nil {
		return bookingHTTPError(err)
	}
	if !result.IsPending() {
		return c.JSON(http.StatusConflict, toReserveResponse(result))
	}
	return c.JSON(http.StatusCreated, toReserveResponse(result))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約と座席を取得します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return bookingHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Confirm godoc
// @Summary 予約を確定
// @Description 仮押さえ中の予約を確定します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "保留中ではない"
// @Failure 410 {object} map[string]string "仮押さえ期限切れ"
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c echo.Context) error {
	b, err := h.service.Confirm(c.Request().Context(), c.Param("id"))
	if err != nil {
		return bookingHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

func bookingHTTPError(err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrBookingExpired):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, booking.ErrAvailabilityUndetermined):
		return echo.NewHTTPError(http.StatusServiceUnavailable, booking.ErrAvailabilityUndetermined.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "内部サーバーエラー").SetInternal(err)
	}
}
