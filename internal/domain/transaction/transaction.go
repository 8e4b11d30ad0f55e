package transaction

import (
	"context"
	"errors"
)

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin はデフォルトの分離レベルで新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
	// BeginSerializable は SERIALIZABLE 分離レベルで新しいトランザクションを開始する
	BeginSerializable(ctx context.Context) (Tx, error)
}

// ストアが報告する一時的な競合
var (
	ErrSerializationFailure = errors.New("シリアライゼーション失敗が発生しました")
	ErrDeadlock             = errors.New("デッドロックが検出されました")
)

// IsConcurrencyConflict はストア由来の一時的な競合かを返す
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrSerializationFailure) || errors.Is(err, ErrDeadlock)
}
