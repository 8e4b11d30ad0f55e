package booking

import "time"

// FailureCode は仮押さえが取れなかった理由を表す
type FailureCode string

const (
	FailureSeatsUnavailable FailureCode = "SEATS_UNAVAILABLE"
	FailureSeatBooked       FailureCode = "SEAT_ALREADY_BOOKED"
	FailureSeatHeld         FailureCode = "SEAT_HELD"
)

var failureReasons = map[FailureCode]string{
	FailureSeatsUnavailable: "some seats are not available",
	FailureSeatBooked:       "seat already booked",
	FailureSeatHeld:         "seat is held by another pending booking",
}

// ReserveResult は仮押さえ要求の結果
// 座席が取れなかった場合はエラーではなく Status=FAILED の結果として返す
type ReserveResult struct {
	Status    Status
	BookingID string
	ExpiresAt time.Time
	Seats     []string
	Code      FailureCode
	Reason    string
}

// Pending は仮押さえ成功の結果を作成する
func Pending(bookingID string, expiresAt time.Time, seats []string) *ReserveResult {
	return &ReserveResult{
		Status:    StatusPending,
		BookingID: bookingID,
		ExpiresAt: expiresAt,
		Seats:     seats,
	}
}

// Failed は座席が取れなかった結果を作成する
func Failed(code FailureCode) *ReserveResult {
	return &ReserveResult{
		Status: StatusFailed,
		Code:   code,
		Reason: failureReasons[code],
	}
}

// IsPending は仮押さえに成功したかを返す
func (r *ReserveResult) IsPending() bool {
	return r.Status == StatusPending
}
