package booking

import (
	"context"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は保留中の予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// AttachSeats は予約と座席を関連付ける（トランザクション必須）
	AttachSeats(ctx context.Context, tx transaction.Tx, bookingID string, seatIDs []string) error

	// GetByID はIDから予約を座席付きで取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetForUpdate は予約を行ロック付きで取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// UpdateStatus は予約の状態を更新する（トランザクション必須）
	UpdateStatus(ctx context.Context, tx transaction.Tx, id string, status Status) error

	// FailIfPending は保留中の予約のみを失敗にする（トランザクション必須）
	// 失敗にした場合 true を返す
	FailIfPending(ctx context.Context, tx transaction.Tx, id string) (bool, error)

	// ListLapsedPending は期限切れの座席を持つ保留中予約を行ロック付きで取得する（トランザクション必須）
	// 他のトランザクションがロック中の予約は除外する
	ListLapsedPending(ctx context.Context, tx transaction.Tx) ([]*Booking, error)

	// ListLapsedHolderIDs は指定座席を期限切れのまま保持している保留中予約のIDを取得する（トランザクション必須）
	ListLapsedHolderIDs(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]string, error)
}
