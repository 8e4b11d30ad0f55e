package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// SeatRef は予約が保持する座席への参照
type SeatRef struct {
	SeatID     string
	SeatNumber string
}

// Booking は予約エンティティを表す
// 座席の集合は作成時に固定され、以後変わらない
type Booking struct {
	ID        string
	ShowID    string
	UserID    *string
	Status    Status
	Seats     []SeatRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBooking は保留中の予約を作成する
func NewBooking(id, showID string, userID *string, now time.Time) *Booking {
	return &Booking{
		ID:        id,
		ShowID:    showID,
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPending は予約が保留中かを返す
func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// Confirm は予約を確定する
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now
	return nil
}

// Fail は予約を失敗にする
func (b *Booking) Fail(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusFailed
	b.UpdatedAt = now
	return nil
}

// SeatNumbers は座席番号の一覧を返す
func (b *Booking) SeatNumbers() []string {
	numbers := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		numbers[i] = s.SeatNumber
	}
	return numbers
}
