package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-show-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/logger"
)

type ShowService struct {
	txManager transaction.Manager
	showRepo  show.Repository
	seatRepo  seat.Repository
	cache     SeatCountCache
}

// NewShowService は ShowService を作成する
// cache が nil の場合は常にデータベースから座席数を数える
func NewShowService(txm transaction.Manager, showRepo show.Repository, seatRepo seat.Repository, cache SeatCountCache) *ShowService {
	return &ShowService{txManager: txm, showRepo: showRepo, seatRepo: seatRepo, cache: cache}
}

type CreateShowInput struct {
	Name       string
	StartTime  time.Time
	TotalSeats int
}

// CreateShow は公演と "1".."TotalSeats" の座席を1トランザクションで作成する
func (s *ShowService) CreateShow(ctx context.Context, input CreateShowInput) (*show.Show, error) {
	sh := show.NewShow(input.Name, input.StartTime, input.TotalSeats)
	if err := sh.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.showRepo.Create(ctx, tx, sh); err != nil {
		return nil, err
	}

	seats := make([]*seat.Seat, 0, sh.TotalSeats)
	for _, number := range sh.SeatNumbers() {
		seats = append(seats, seat.NewSeat(sh.ID, number))
	}
	if err := s.seatRepo.CreateBulk(ctx, tx, seats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("公演を作成しました", zap.String("show_id", sh.ID), zap.Int("total_seats", sh.TotalSeats))
	return sh, nil
}

func (s *ShowService) ListShows(ctx context.Context, limit, offset int) ([]*show.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.showRepo.ListSummaries(ctx, limit, offset)
}

// ShowDetail は公演と座席一覧
type ShowDetail struct {
	Show  *show.Show
	Seats []*seat.Seat
}

// Counts は座席一覧から状態別座席数を数える
func (d *ShowDetail) Counts() map[seat.Status]int {
	counts := map[seat.Status]int{
		seat.StatusAvailable: 0,
		seat.StatusHeld:      0,
		seat.StatusBooked:    0,
	}
	for _, st := range d.Seats {
		counts[st.Status]++
	}
	return counts
}

func (s *ShowService) GetShow(ctx context.Context, id string) (*ShowDetail, error) {
	sh, err := s.getShow(ctx, id)
	if err != nil {
		return nil, err
	}
	seats, err := s.seatRepo.GetByShowID(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	return &ShowDetail{Show: sh, Seats: seats}, nil
}

// GetAvailability は公演の状態別座席数を返す
// キャッシュがあれば優先し、なければデータベースで数えてキャッシュする
func (s *ShowService) GetAvailability(ctx context.Context, id string) (map[seat.Status]int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, show.ErrShowNotFound
	}

	if s.cache != nil {
		counts, err := s.cache.GetCounts(ctx, id)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("show_id", id))
			return counts, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	if _, err := s.showRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	counts, err := s.seatRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCounts(ctx, id, counts); err != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(err))
		}
	}
	return counts, nil
}

func (s *ShowService) getShow(ctx context.Context, id string) (*show.Show, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, show.ErrShowNotFound
	}
	return s.showRepo.GetByID(ctx, id)
}
