package seat

import "time"

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHeld      Status = "HELD"
	StatusBooked    Status = "BOOKED"
)

// Seat は座席エンティティを表す
// 座席は公演に属し、(ShowID, SeatNumber) で一意に識別される
type Seat struct {
	ID          string
	ShowID      string
	SeatNumber  string
	Status      Status
	LockedUntil *time.Time // HELD の間のみ設定される
	Version     int        // 楽観的ロック用
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSeat は新しい座席を作成する
func NewSeat(showID, seatNumber string) *Seat {
	now := time.Now()
	return &Seat{
		ShowID:     showID,
		SeatNumber: seatNumber,
		Status:     StatusAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    0,
	}
}

// IsHoldActive は now 時点で有効な仮押さえが残っているかを返す
func (s *Seat) IsHoldActive(now time.Time) bool {
	return s.Status == StatusHeld && s.LockedUntil != nil && s.LockedUntil.After(now)
}

// IsHoldLapsed は仮押さえの期限が now 時点で切れているかを返す
func (s *Seat) IsHoldLapsed(now time.Time) bool {
	return s.Status == StatusHeld && s.LockedUntil != nil && s.LockedUntil.Before(now)
}

// CheckEligible は now 時点で新しい仮押さえの対象にできるかを検査する
// 期限切れで未回収の HELD 座席も対象になる
func (s *Seat) CheckEligible(now time.Time) error {
	switch {
	case s.Status == StatusBooked:
		return ErrSeatAlreadyBooked
	case s.IsHoldActive(now):
		return ErrSeatHeld
	}
	return nil
}

// Hold は座席を until まで仮押さえ状態にする
func (s *Seat) Hold(until time.Time, now time.Time) error {
	if err := s.CheckEligible(now); err != nil {
		return err
	}
	s.Status = StatusHeld
	s.LockedUntil = &until
	s.Version++
	s.UpdatedAt = now
	return nil
}

// Book は仮押さえ中の座席を確定状態にする
func (s *Seat) Book(now time.Time) error {
	if s.Status != StatusHeld {
		return ErrSeatNotHeld
	}
	if s.IsHoldLapsed(now) {
		return ErrHoldExpired
	}
	s.Status = StatusBooked
	s.LockedUntil = nil
	s.Version++
	s.UpdatedAt = now
	return nil
}
