package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound = errors.New("予約が見つかりません")
	ErrInvalidState    = errors.New("予約は保留中ではありません")
	ErrBookingExpired  = errors.New("予約の仮押さえ期限が切れています")
	ErrInvalidInput    = errors.New("予約リクエストが不正です")

	// ErrAvailabilityUndetermined はリトライ上限に達し空席状況を判定できなかったことを示す
	// 座席が埋まっていることを意味しない
	ErrAvailabilityUndetermined = errors.New("空席状況を判定できませんでした")
)
