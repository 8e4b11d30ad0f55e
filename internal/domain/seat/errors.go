package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatAlreadyBooked = errors.New("座席は既に確定済みです")
	ErrSeatHeld          = errors.New("座席は他の保留中の予約に仮押さえされています")
	ErrSeatNotHeld       = errors.New("座席は仮押さえされていません")
	ErrHoldExpired       = errors.New("座席の仮押さえ期限が切れています")

	// ErrVersionConflict は読み取り後に他のトランザクションが座席を更新したことを示す
	ErrVersionConflict = errors.New("楽観的ロックの競合が発生しました")
)
