package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
)

type showRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	StartTime  time.Time `db:"start_time"`
	TotalSeats int       `db:"total_seats"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *showRow) toEntity() *show.Show {
	return &show.Show{
		ID:         r.ID,
		Name:       r.Name,
		StartTime:  r.StartTime,
		TotalSeats: r.TotalSeats,
		CreatedAt:  r.CreatedAt,
	}
}

type ShowRepository struct {
	db *sqlx.DB
}

func NewShowRepository(db *sqlx.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

// Create は公演を作成し、採番されたIDと作成日時を設定する
func (r *ShowRepository) Create(ctx context.Context, tx transaction.Tx, s *show.Show) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO shows (name, start_time, total_seats) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := t.QueryRowxContext(ctx, query, s.Name, s.StartTime, s.TotalSeats).Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("公演作成に失敗: %w", err)
	}
	return nil
}

func (r *ShowRepository) GetByID(ctx context.Context, id string) (*show.Show, error) {
	var row showRow
	query := `SELECT id, name, start_time, total_seats, created_at FROM shows WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, show.ErrShowNotFound
		}
		return nil, fmt.Errorf("公演取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ShowRepository) ListSummaries(ctx context.Context, limit, offset int) ([]*show.Summary, error) {
	var rows []struct {
		showRow
		AvailableSeats int `db:"available_seats"`
		HeldSeats      int `db:"held_seats"`
		BookedSeats    int `db:"booked_seats"`
	}
	query := `SELECT sh.id, sh.name, sh.start_time, sh.total_seats, sh.created_at,
			COUNT(CASE WHEN st.status = 'AVAILABLE' THEN 1 END) AS available_seats,
			COUNT(CASE WHEN st.status = 'HELD' THEN 1 END) AS held_seats,
			COUNT(CASE WHEN st.status = 'BOOKED' THEN 1 END) AS booked_seats
		FROM shows sh
		LEFT JOIN seats st ON st.show_id = sh.id
		GROUP BY sh.id, sh.name, sh.start_time, sh.total_seats, sh.created_at
		ORDER BY sh.start_time
		LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("公演一覧取得に失敗: %w", err)
	}

	summaries := make([]*show.Summary, len(rows))
	for i, row := range rows {
		summaries[i] = &show.Summary{
			Show:           *row.toEntity(),
			AvailableSeats: row.AvailableSeats,
			HeldSeats:      row.HeldSeats,
			BookedSeats:    row.BookedSeats,
		}
	}
	return summaries, nil
}

var _ show.Repository = (*ShowRepository)(nil)
