package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

// Commit はトランザクションをコミットする
// SERIALIZABLE ではコミット時にシリアライゼーション失敗が報告されることがある
func (t *TxWrapper) Commit() error {
	return classify(t.Tx.Commit(), "コミットに失敗")
}

// Rollback はトランザクションをロールバックする
func (t *TxWrapper) Rollback() error {
	return t.Tx.Rollback()
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	return m.begin(ctx, nil)
}

// BeginSerializable は SERIALIZABLE 分離レベルのトランザクションを開始する
func (m *TxManager) BeginSerializable(ctx context.Context) (transaction.Tx, error) {
	return m.begin(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (m *TxManager) begin(ctx context.Context, opts *sql.TxOptions) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, classify(err, "トランザクション開始に失敗")
	}
	return &TxWrapper{Tx: tx}, nil
}

// UnwrapTx は transaction.Tx から sqlx.Tx を取り出す
// リポジトリ実装で使用する
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx
	}
	return nil
}

var _ transaction.Manager = (*TxManager)(nil)
