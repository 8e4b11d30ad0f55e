package postgres

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

// PostgreSQL の SQLSTATE
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// classify はドライバーのエラーを一時的な競合のセンチネルに対応付ける
// 元のエラーも errors.Is / errors.As で辿れるように両方をラップする
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure:
			return fmt.Errorf("%s: %w: %w", msg, transaction.ErrSerializationFailure, err)
		case codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %w", msg, transaction.ErrDeadlock, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ErrNoTransaction はトランザクション必須の操作に有効なトランザクションが渡されなかったことを示す
var ErrNoTransaction = errors.New("トランザクションが指定されていません")

func sqlTx(tx transaction.Tx) (*sqlx.Tx, error) {
	if t := UnwrapTx(tx); t != nil {
		return t, nil
	}
	return nil, ErrNoTransaction
}
