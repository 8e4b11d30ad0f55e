package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-show-seat-reservation/internal/application"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/show"
)

type ShowHandler struct {
	service ShowServiceInterface
}

func NewShowHandler(s ShowServiceInterface) *ShowHandler {
	return &ShowHandler{service: s}
}

type CreateShowRequest struct {
	Name       string    `json:"name" validate:"required,max=255" example:"夜公演"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	TotalSeats int       `json:"total_seats" validate:"required,min=1,max=10000" example:"100"`
}

type ShowResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	TotalSeats int       `json:"total_seats"`
	CreatedAt  time.Time `json:"created_at"`
}

// SeatCountsResponse は状態別座席数
type SeatCountsResponse struct {
	Available int `json:"available"`
	Held      int `json:"held"`
	Booked    int `json:"booked"`
}

type ShowSummaryResponse struct {
	ShowResponse
	SeatCountsResponse
}

type SeatResponse struct {
	SeatNumber  string     `json:"seat_number"`
	Status      string     `json:"status"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

type ShowDetailResponse struct {
	ShowResponse
	Counts SeatCountsResponse `json:"counts"`
	Seats  []SeatResponse     `json:"seats"`
}

type AvailabilityResponse struct {
	ShowID string `json:"show_id"`
	SeatCountsResponse
}

func toShowResponse(s *show.Show) ShowResponse {
	return ShowResponse{
		ID: s.ID, Name: s.Name, StartTime: s.StartTime,
		TotalSeats: s.TotalSeats, CreatedAt: s.CreatedAt,
	}
}

func toSeatCountsResponse(counts map[seat.Status]int) SeatCountsResponse {
	return SeatCountsResponse{
		Available: counts[seat.StatusAvailable],
		Held:      counts[seat.StatusHeld],
		Booked:    counts[seat.StatusBooked],
	}
}

// Create godoc
// @Summary 公演を作成
// @Description 公演と座席 "1".."total_seats" を作成します
// @Tags shows
// @Accept json
// @Produce json
// @Param request body CreateShowRequest true "公演情報"
// @Success 201 {object} ShowResponse
// @Failure 400 {object} map[string]string
// @Router /shows [post]
func (h *ShowHandler) Create(c echo.Context) error {
	var req CreateShowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateShow(c.Request().Context(), application.CreateShowInput{
		Name: req.Name, StartTime: req.StartTime, TotalSeats: req.TotalSeats,
	})
	if err != nil {
		return showHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toShowResponse(s))
}

// List godoc
// @Summary 公演一覧を取得
// @Tags shows
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ShowSummaryResponse
// @Router /shows [get]
func (h *ShowHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	summaries, err := h.service.ListShows(c.Request().Context(), limit, offset)
	if err != nil {
		return showHTTPError(err)
	}
	resp := make([]ShowSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = ShowSummaryResponse{
			ShowResponse: toShowResponse(&s.Show),
			SeatCountsResponse: SeatCountsResponse{
				Available: s.AvailableSeats, Held: s.HeldSeats, Booked: s.BookedSeats,
			},
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary 公演と座席一覧を取得
// @Tags shows
// @Produce json
// @Param id path string true "公演ID"
// @Success 200 {object} ShowDetailResponse
// @Failure 404 {object} map[string]string
// @Router /shows/{id} [get]
func (h *ShowHandler) GetByID(c echo.Context) error {
	detail, err := h.service.GetShow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return showHTTPError(err)
	}
	seats := make([]SeatResponse, len(detail.Seats))
	for i, s := range detail.Seats {
		seats[i] = SeatResponse{SeatNumber: s.SeatNumber, Status: string(s.Status), LockedUntil: s.LockedUntil}
	}
	return c.JSON(http.StatusOK, ShowDetailResponse{
		ShowResponse: toShowResponse(detail.Show),
		Counts:       toSeatCountsResponse(detail.Counts()),
		Seats:        seats,
	})
}

// Availability godoc
// @Summary 公演の状態別座席数を取得
// @Tags shows
// @Produce json
// @Param id path string true "公演ID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /shows/{id}/availability [get]
func (h *ShowHandler) Availability(c echo.Context) error {
	id := c.Param("id")
	counts, err := h.service.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return showHTTPError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{ShowID: id, SeatCountsResponse: toSeatCountsResponse(counts)})
}

func showHTTPError(err error) error {
	switch {
	case errors.Is(err, show.ErrShowNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, show.ErrShowNameRequired),
		errors.Is(err, show.ErrStartTimeRequired),
		errors.Is(err, show.ErrInvalidTotalSeats):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "内部サーバーエラー").SetInternal(err)
	}
}
