package show

import "errors"

// Show ドメインのエラー定義
var (
	ErrShowNotFound      = errors.New("公演が見つかりません")
	ErrShowNameRequired  = errors.New("公演名は必須です")
	ErrStartTimeRequired = errors.New("開始時刻は必須です")
	ErrInvalidTotalSeats = errors.New("座席数は1以上10000以下である必要があります")
)
