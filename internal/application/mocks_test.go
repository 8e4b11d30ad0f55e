package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

func (m *MockTxManager) BeginSerializable(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) AttachSeats(ctx context.Context, tx transaction.Tx, bookingID string, seatIDs []string) error {
	args := m.Called(ctx, tx, bookingID, seatIDs)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, id string, status booking.Status) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepository) FailIfPending(ctx context.Context, tx transaction.Tx, id string) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) ListLapsedPending(ctx context.Context, tx transaction.Tx) ([]*booking.Booking, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListLapsedHolderIDs(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]string, error) {
	args := m.Called(ctx, tx, showID, seatNumbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockSeatRepository implements seat.Repository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	args := m.Called(ctx, tx, seats)
	return args.Error(0)
}

func (m *MockSeatRepository) GetByShowID(ctx context.Context, showID string) ([]*seat.Seat, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) CountByStatus(ctx context.Context, showID string) (map[seat.Status]int, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[seat.Status]int), args.Error(1)
}

func (m *MockSeatRepository) LockShow(ctx context.Context, tx transaction.Tx, showID string) error {
	args := m.Called(ctx, tx, showID)
	return args.Error(0)
}

func (m *MockSeatRepository) Now(ctx context.Context, tx transaction.Tx) (time.Time, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockSeatRepository) GetForUpdateSkipLocked(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]*seat.Seat, error) {
	args := m.Called(ctx, tx, showID, seatNumbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) Hold(ctx context.Context, tx transaction.Tx, seatID string, version int, lockedUntil time.Time) error {
	args := m.Called(ctx, tx, seatID, version, lockedUntil)
	return args.Error(0)
}

func (m *MockSeatRepository) GetByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) ([]*seat.Seat, error) {
	args := m.Called(ctx, tx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) BookByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	args := m.Called(ctx, tx, bookingID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) ReleaseLapsedByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	args := m.Called(ctx, tx, bookingID)
	return args.Int(0), args.Error(1)
}

// MockShowRepository implements show.Repository
type MockShowRepository struct {
	mock.Mock
}

func (m *MockShowRepository) Create(ctx context.Context, tx transaction.Tx, s *show.Show) error {
	args := m.Called(ctx, tx, s)
	return args.Error(0)
}

func (m *MockShowRepository) GetByID(ctx context.Context, id string) (*show.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowRepository) ListSummaries(ctx context.Context, limit, offset int) ([]*show.Summary, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*show.Summary), args.Error(1)
}

// MockSeatCache implements SeatCountCache
type MockSeatCache struct {
	mock.Mock
}

func (m *MockSeatCache) GetCounts(ctx context.Context, showID string) (map[seat.Status]int, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[seat.Status]int), args.Error(1)
}

func (m *MockSeatCache) SetCounts(ctx context.Context, showID string, counts map[seat.Status]int) error {
	args := m.Called(ctx, showID, counts)
	return args.Error(0)
}

func (m *MockSeatCache) Invalidate(ctx context.Context, showIDs ...string) error {
	args := m.Called(ctx, showIDs)
	return args.Error(0)
}

// MockPublisher implements EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishConfirmed(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockPublisher) PublishExpired(ctx context.Context, b *booking.Booking, expiredAt time.Time) error {
	args := m.Called(ctx, b, expiredAt)
	return args.Error(0)
}
