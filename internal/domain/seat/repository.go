package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// CreateBulk は複数の座席を一括作成する（トランザクション必須）
	CreateBulk(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// GetByShowID は公演IDから座席一覧を取得する
	GetByShowID(ctx context.Context, showID string) ([]*Seat, error)

	// CountByStatus は公演の状態別座席数を取得する
	CountByStatus(ctx context.Context, showID string) (map[Status]int, error)

	// LockShow は公演単位のアドバイザリロックを取得する（トランザクション終了まで保持）
	LockShow(ctx context.Context, tx transaction.Tx, showID string) error

	// Now はトランザクションのスナップショット時刻を返す
	Now(ctx context.Context, tx transaction.Tx) (time.Time, error)

	// GetForUpdateSkipLocked は指定座席を行ロック付きで取得する
	// 他のトランザクションがロック中の行は返さない
	GetForUpdateSkipLocked(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]*Seat, error)

	// Hold は読み取り時のバージョンを条件に座席を仮押さえする
	// 更新行が0件の場合は ErrVersionConflict を返す
	Hold(ctx context.Context, tx transaction.Tx, seatID string, version int, lockedUntil time.Time) error

	// GetByBookingID は予約に紐づく座席を取得する（トランザクション必須）
	GetByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) ([]*Seat, error)

	// BookByBookingID は予約に紐づく座席を確定状態にする（トランザクション必須）
	BookByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) (int, error)

	// ReleaseLapsedByBookingID は予約に紐づく期限切れの仮押さえを解放する（トランザクション必須）
	ReleaseLapsedByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) (int, error)
}
