package show

import (
	"context"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

// Repository は公演リポジトリのインターフェース
type Repository interface {
	// Create は新しい公演を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, show *Show) error

	// GetByID はIDから公演を取得する
	GetByID(ctx context.Context, id string) (*Show, error)

	// ListSummaries は状態別座席数付きの公演一覧を取得する
	ListSummaries(ctx context.Context, limit, offset int) ([]*Summary, error)
}
