package show

import (
	"strconv"
	"time"
)

// MaxSeats は1公演あたりの座席数の上限
const MaxSeats = 10000

// Show は公演エンティティを表す
type Show struct {
	ID         string
	Name       string
	StartTime  time.Time
	TotalSeats int
	CreatedAt  time.Time
}

// Summary は公演と状態別座席数
type Summary struct {
	Show
	AvailableSeats int
	HeldSeats      int
	BookedSeats    int
}

// NewShow は新しい公演を作成する
func NewShow(name string, startTime time.Time, totalSeats int) *Show {
	return &Show{
		Name:       name,
		StartTime:  startTime,
		TotalSeats: totalSeats,
		CreatedAt:  time.Now(),
	}
}

// Validate は公演の検証を行う
func (s *Show) Validate() error {
	if s.Name == "" {
		return ErrShowNameRequired
	}
	if s.StartTime.IsZero() {
		return ErrStartTimeRequired
	}
	if s.TotalSeats <= 0 || s.TotalSeats > MaxSeats {
		return ErrInvalidTotalSeats
	}
	return nil
}

// SeatNumbers は "1".."TotalSeats" の座席番号を返す
func (s *Show) SeatNumbers() []string {
	numbers := make([]string, s.TotalSeats)
	for i := range numbers {
		numbers[i] = strconv.Itoa(i + 1)
	}
	return numbers
}
