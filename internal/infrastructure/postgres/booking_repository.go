package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

type bookingRow struct {
	ID        string         `db:"id"`
	ShowID    string         `db:"show_id"`
	UserID    sql.NullString `db:"user_id"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	b := &booking.Booking{
		ID:        r.ID,
		ShowID:    r.ShowID,
		Status:    booking.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.UserID.Valid {
		userID := r.UserID.String
		b.UserID = &userID
	}
	return b
}

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO bookings (id, show_id, user_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	var userID sql.NullString
	if b.UserID != nil {
		userID = sql.NullString{String: *b.UserID, Valid: true}
	}
	if _, err := t.ExecContext(ctx, query, b.ID, b.ShowID, userID, string(b.Status), b.CreatedAt, b.UpdatedAt); err != nil {
		return classify(err, "予約作成に失敗")
	}
	return nil
}

func (r *BookingRepository) AttachSeats(ctx context.Context, tx transaction.Tx, bookingID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id) SELECT $1, unnest($2::uuid[])`
	if _, err := t.ExecContext(ctx, query, bookingID, pq.Array(seatIDs)); err != nil {
		return classify(err, "予約座席の関連付けに失敗")
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT id, show_id, user_id, status, created_at, updated_at FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}

	var seats []struct {
		SeatID     string `db:"seat_id"`
		SeatNumber string `db:"seat_number"`
	}
	seatQuery := `SELECT s.id AS seat_id, s.seat_number FROM booking_seats bs
		JOIN seats s ON s.id = bs.seat_id
		WHERE bs.booking_id = $1
		ORDER BY length(s.seat_number), s.seat_number`
	if err := r.db.SelectContext(ctx, &seats, seatQuery, id); err != nil {
		return nil, fmt.Errorf("予約座席取得に失敗: %w", err)
	}

	b := row.toEntity()
	b.Seats = make([]booking.SeatRef, len(seats))
	for i, s := range seats {
		b.Seats[i] = booking.SeatRef{SeatID: s.SeatID, SeatNumber: s.SeatNumber}
	}
	return b, nil
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	var row bookingRow
	query := `SELECT id, show_id, user_id, status, created_at, updated_at FROM bookings WHERE id = $1 FOR UPDATE`
	if err := t.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, classify(err, "予約ロック取得に失敗")
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, id string, status booking.Status) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	result, err := t.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return classify(err, "予約更新に失敗")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) FailIfPending(ctx context.Context, tx transaction.Tx, id string) (bool, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return false, err
	}
	result, err := t.ExecContext(ctx, `UPDATE bookings SET status = 'FAILED', updated_at = NOW() WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return false, classify(err, "予約失効に失敗")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	return rows > 0, nil
}

func (r *BookingRepository) ListLapsedPending(ctx context.Context, tx transaction.Tx) ([]*booking.Booking, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT b.id, b.show_id, b.user_id, b.status, b.created_at, b.updated_at FROM bookings b
		WHERE b.status = 'PENDING'
		  AND EXISTS (
			SELECT 1 FROM booking_seats bs
			JOIN seats s ON s.id = bs.seat_id
			WHERE bs.booking_id = b.id
			  AND s.locked_until IS NOT NULL
			  AND s.locked_until < NOW()
		  )
		ORDER BY b.created_at
		FOR UPDATE OF b SKIP LOCKED`
	var rows []bookingRow
	if err := t.SelectContext(ctx, &rows, query); err != nil {
		return nil, classify(err, "期限切れ予約の取得に失敗")
	}
	bookings := make([]*booking.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].toEntity()
	}
	return bookings, nil
}

func (r *BookingRepository) ListLapsedHolderIDs(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]string, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT DISTINCT b.id FROM bookings b
		JOIN booking_seats bs ON bs.booking_id = b.id
		JOIN seats s ON s.id = bs.seat_id
		WHERE b.status = 'PENDING'
		  AND s.show_id = $1
		  AND s.seat_number = ANY($2)
		  AND s.status = 'HELD'
		  AND s.locked_until < NOW()`
	var ids []string
	if err := t.SelectContext(ctx, &ids, query, showID, pq.Array(seatNumbers)); err != nil {
		return nil, classify(err, "期限切れ保持予約の取得に失敗")
	}
	return ids, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
