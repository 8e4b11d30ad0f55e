package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-seat-reservation/internal/application"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
)

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Reserve(ctx context.Context, input application.ReserveInput) (*booking.ReserveResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.ReserveResult), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, bookingID string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func newReserveContext(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	return newJSONContext(e, http.MethodPost, "/bookings", body)
}

func TestBookingHandler_Reserve(t *testing.T) {
	e := newTestEcho()

	t.Run("仮押さえに成功すると201", func(t *testing.T) {
		mockService := new(MockBookingService)
		expiresAt := time.Now().Add(2 * time.Minute).UTC()
		mockService.On("Reserve", mock.Anything, mock.MatchedBy(func(in application.ReserveInput) bool {
			return in.ShowID == testShowID && len(in.SeatNumbers) == 2 && in.UserID != nil && *in.UserID == "user-1"
		})).Return(booking.Pending(testBookingID, expiresAt, []string{"1", "2"}), nil)

		c, rec := newReserveContext(e, fmt.Sprintf(`{"show_id":%q,"seat_numbers":["1","2"],"user_id":"user-1"}`, testShowID))

		err := NewBookingHandler(mockService).Reserve(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp ReserveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "PENDING", resp.Status)
		assert.Equal(t, testBookingID, resp.BookingID)
		require.NotNil(t, resp.ExpiresAt)
		assert.True(t, expiresAt.Equal(*resp.ExpiresAt))
		assert.Equal(t, []string{"1", "2"}, resp.Seats)
		assert.Empty(t, resp.Code)

		mockService.AssertExpectations(t)
	})

	t.Run("user_idがなければX-User-IDヘッダーを使う", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Reserve", mock.Anything, mock.MatchedBy(func(in application.ReserveInput) bool {
			return in.UserID != nil && *in.UserID == "header-user"
		})).Return(booking.Pending(testBookingID, time.Now(), []string{"1"}), nil)

		c, rec := newReserveContext(e, fmt.Sprintf(`{"show_id":%q,"seat_numbers":["1"]}`, testShowID))
		c.Request().Header.Set("X-User-ID", "header-user")

		require.NoError(t, NewBookingHandler(mockService).Reserve(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ユーザー指定なしでも仮押さえできる", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Reserve", mock.Anything, mock.MatchedBy(func(in application.ReserveInput) bool {
			return in.UserID == nil
		})).Return(booking.Pending(testBookingID, time.Now(), []string{"1"}), nil)

		c, rec := newReserveContext(e, fmt.Sprintf(`{"show_id":%q,"seat_numbers":["1"]}`, testShowID))

		require.NoError(t, NewBookingHandler(mockService).Reserve(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("座席が取れなければ409とFAILED結果", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Reserve", mock.Anything, mock.Anything).Return(booking.Failed(booking.FailureSeatHeld), nil)

		c, rec := newReserveContext(e, fmt.Sprintf(`{"show_id":%q,"seat_numbers":["1"]}`, testShowID))

		require.NoError(t, NewBookingHandler(mockService).Reserve(c))
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp ReserveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "FAILED", resp.Status)
		assert.Equal(t, "SEAT_HELD", resp.Code)
		assert.Equal(t, "seat is held by another pending booking", resp.Reason)
		assert.Empty(t, resp.BookingID)
		assert.Nil(t, resp.ExpiresAt)
	})

	validationTests := []struct {
		name string
		body string
	}{
		{"不正なJSON", "invalid"},
		{"show_id未指定", `{"seat_numbers":["1"]}`},
		{"show_idがUUIDでない", `{"show_id":"abc","seat_numbers":["1"]}`},
		{"座席番号が空", fmt.Sprintf(`{"show_id":%q,"seat_numbers":[]}`, testShowID)},
		{"空文字の座席番号", fmt.Sprintf(`{"show_id":%q,"seat_numbers":["1",""]}`, testShowID)},
	}
	for _, tt := range validationTests {
		t.Run(tt.name+"は400", func(t *testing.T) {
			mockService := new(MockBookingService)
			c, _ := newReserveContext(e, tt.body)

			err := NewBookingHandler(mockService).Reserve(c)

			requireHTTPError(t, err, http.StatusBadRequest)
			mockService.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
		})
	}

	errorTests := []struct {
		name string
		err  error
		code int
	}{
		{"入力エラーは400", fmt.Errorf("%w: 座席番号が重複しています", booking.ErrInvalidInput), http.StatusBadRequest},
		{"判定不能は503", fmt.Errorf("%w (5回試行): %w", booking.ErrAvailabilityUndetermined, errors.New("serialization")), http.StatusServiceUnavailable},
		{"その他のエラーは500", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			mockService.On("Reserve", mock.Anything, mock.Anything).Return(nil, tt.err)

			c, _ := newReserveContext(e, fmt.Sprintf(`{"show_id":%q,"seat_numbers":["1"]}`, testShowID))

			err := NewBookingHandler(mockService).Reserve(c)

			requireHTTPError(t, err, tt.code)
		})
	}
}

func TestBookingHandler_GetByID(t *testing.T) {
	e := newTestEcho()

	t.Run("正常に予約を取得できる", func(t *testing.T) {
		mockService := new(MockBookingService)
		now := time.Now()
		userID := "user-1"
		mockService.On("GetBooking", mock.Anything, testBookingID).Return(&booking.Booking{
			ID: testBookingID, ShowID: testShowID, UserID: &userID, Status: booking.StatusPending,
			Seats:     []booking.SeatRef{{SeatID: "seat-1", SeatNumber: "1"}},
			CreatedAt: now, UpdatedAt: now,
		}, nil)

		c, rec := newIDContext(e, http.MethodGet, "/bookings/"+testBookingID, testBookingID)

		require.NoError(t, NewBookingHandler(mockService).GetByID(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp BookingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, testBookingID, resp.ID)
		assert.Equal(t, "PENDING", resp.Status)
		require.Len(t, resp.Seats, 1)
		assert.Equal(t, "1", resp.Seats[0].SeatNumber)
		assert.Equal(t, "seat-1", resp.Seats[0].SeatID)

		mockService.AssertExpectations(t)
	})

	t.Run("予約が見つからない場合404", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("GetBooking", mock.Anything, "nonexistent").Return(nil, booking.ErrBookingNotFound)

		c, _ := newIDContext(e, http.MethodGet, "/bookings/nonexistent", "nonexistent")

		err := NewBookingHandler(mockService).GetByID(c)

		requireHTTPError(t, err, http.StatusNotFound)
		mockService.AssertExpectations(t)
	})
}

func TestBookingHandler_Confirm(t *testing.T) {
	e := newTestEcho()

	newConfirmContext := func() (echo.Context, *httptest.ResponseRecorder) {
		return newIDContext(e, http.MethodPost, "/bookings/"+testBookingID+"/confirm", testBookingID)
	}

	t.Run("正常に確定できる", func(t *testing.T) {
		mockService := new(MockBookingService)
		now := time.Now()
		mockService.On("Confirm", mock.Anything, testBookingID).Return(&booking.Booking{
			ID: testBookingID, ShowID: testShowID, Status: booking.StatusConfirmed,
			Seats:     []booking.SeatRef{{SeatID: "seat-1", SeatNumber: "1"}},
			CreatedAt: now, UpdatedAt: now,
		}, nil)

		c, rec := newConfirmContext()

		require.NoError(t, NewBookingHandler(mockService).Confirm(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)
		mockService.AssertExpectations(t)
	})

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"存在しない予約は404", booking.ErrBookingNotFound, http.StatusNotFound},
		{"保留中でない予約は409", booking.ErrInvalidState, http.StatusConflict},
		{"期限切れは410", booking.ErrBookingExpired, http.StatusGone},
		{"ストアのエラーは500", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			mockService.On("Confirm", mock.Anything, testBookingID).Return(nil, tt.err)

			c, _ := newConfirmContext()

			err := NewBookingHandler(mockService).Confirm(c)

			requireHTTPError(t, err, tt.code)
		})
	}
}
