package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

const seatColumns = `s.id, s.show_id, s.seat_number, s.status, s.locked_until, s.version, s.created_at, s.updated_at`

type seatRow struct {
	ID          string     `db:"id"`
	ShowID      string     `db:"show_id"`
	SeatNumber  string     `db:"seat_number"`
	Status      string     `db:"status"`
	LockedUntil *time.Time `db:"locked_until"`
	Version     int        `db:"version"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, ShowID: r.ShowID, SeatNumber: r.SeatNumber,
		Status: seat.Status(r.Status), LockedUntil: r.LockedUntil, Version: r.Version,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toSeats(rows []seatRow) []*seat.Seat {
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	return seats
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, t, seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
func (r *SeatRepository) createBulkBatch(ctx context.Context, t *sqlx.Tx, seats []*seat.Seat) error {
	const cols = 7
	query := `INSERT INTO seats (id, show_id, seat_number, status, version, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(seats)*cols)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, s.ID, s.ShowID, s.SeatNumber, string(s.Status), s.Version, s.CreatedAt, s.UpdatedAt)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := t.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByShowID(ctx context.Context, showID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats s WHERE s.show_id = $1 ORDER BY length(s.seat_number), s.seat_number`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, showID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) CountByStatus(ctx context.Context, showID string) (map[seat.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM seats WHERE show_id = $1 GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query, showID); err != nil {
		return nil, fmt.Errorf("座席数取得に失敗: %w", err)
	}
	counts := map[seat.Status]int{
		seat.StatusAvailable: 0,
		seat.StatusHeld:      0,
		seat.StatusBooked:    0,
	}
	for _, row := range rows {
		counts[seat.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// LockShow は公演IDのハッシュをキーにトランザクションスコープのアドバイザリロックを取得する
// 同一公演への仮押さえはDB上で直列化され、複数インスタンス間でも有効
func (r *SeatRepository) LockShow(ctx context.Context, tx transaction.Tx, showID string) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	if _, err := t.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1)::bigint)`, showID); err != nil {
		return classify(err, "公演ロック取得に失敗")
	}
	return nil
}

// Now はトランザクション開始時刻（NOW()）を返す
func (r *SeatRepository) Now(ctx context.Context, tx transaction.Tx) (time.Time, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return time.Time{}, err
	}
	var now time.Time
	if err := t.GetContext(ctx, &now, `SELECT NOW()`); err != nil {
		return time.Time{}, classify(err, "現在時刻取得に失敗")
	}
	return now, nil
}

func (r *SeatRepository) GetForUpdateSkipLocked(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]*seat.Seat, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + seatColumns + ` FROM seats s WHERE s.show_id = $1 AND s.seat_number = ANY($2) FOR UPDATE SKIP LOCKED`
	var rows []seatRow
	if err := t.SelectContext(ctx, &rows, query, showID, pq.Array(seatNumbers)); err != nil {
		return nil, classify(err, "座席ロック取得に失敗")
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) Hold(ctx context.Context, tx transaction.Tx, seatID string, version int, lockedUntil time.Time) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = 'HELD', locked_until = $1, version = version + 1, updated_at = NOW() WHERE id = $2 AND version = $3`
	result, err := t.ExecContext(ctx, query, lockedUntil, seatID, version)
	if err != nil {
		return classify(err, "座席仮押さえに失敗")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return seat.ErrVersionConflict
	}
	return nil
}

func (r *SeatRepository) GetByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) ([]*seat.Seat, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + seatColumns + ` FROM seats s JOIN booking_seats bs ON bs.seat_id = s.id WHERE bs.booking_id = $1 FOR UPDATE OF s`
	var rows []seatRow
	if err := t.SelectContext(ctx, &rows, query, bookingID); err != nil {
		return nil, classify(err, "予約座席取得に失敗")
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) BookByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return 0, err
	}
	query := `UPDATE seats SET status = 'BOOKED', locked_until = NULL, version = version + 1, updated_at = NOW()
		WHERE id IN (SELECT seat_id FROM booking_seats WHERE booking_id = $1) AND status = 'HELD'`
	result, err := t.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, classify(err, "座席確定に失敗")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	return int(rows), nil
}

// ReleaseLapsedByBookingID は期限切れの HELD 座席のみを空席に戻す
// スキャン後に確定・再仮押さえされた座席は条件に一致せず変更されない
func (r *SeatRepository) ReleaseLapsedByBookingID(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return 0, err
	}
	query := `UPDATE seats SET status = 'AVAILABLE', locked_until = NULL, version = version + 1, updated_at = NOW()
		WHERE id IN (SELECT seat_id FROM booking_seats WHERE booking_id = $1)
		  AND status = 'HELD' AND locked_until < NOW()`
	result, err := t.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, classify(err, "座席解放に失敗")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	return int(rows), nil
}

var _ seat.Repository = (*SeatRepository)(nil)
