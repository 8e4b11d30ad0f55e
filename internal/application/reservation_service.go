package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-show-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-seat-reservation/internal/pkg/metrics"
)

// ReservationOptions は仮押さえの挙動を決める設定
type ReservationOptions struct {
	HoldDuration time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultReservationOptions はデフォルト設定を返す
func DefaultReservationOptions() ReservationOptions {
	return ReservationOptions{
		HoldDuration: 120 * time.Second,
		MaxRetries:   5,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// Option は ReservationService の任意の依存を設定する
type Option func(*ReservationService)

// WithSeatCache は座席数キャッシュを設定する
func WithSeatCache(c SeatCountCache) Option {
	return func(s *ReservationService) { s.cache = c }
}

// WithEventPublisher はイベント発行先を設定する
func WithEventPublisher(p EventPublisher) Option {
	return func(s *ReservationService) { s.publisher = p }
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReservationService) { s.metrics = m }
}

type ReservationService struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	seatRepo    seat.Repository
	cache       SeatCountCache
	publisher   EventPublisher
	metrics     *metrics.Metrics
	opts        ReservationOptions

	newID func() string
	sleep func(ctx context.Context, d time.Duration) error
}

func NewReservationService(txm transaction.Manager, br booking.Repository, sr seat.Repository, opts ReservationOptions, options ...Option) *ReservationService {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	s := &ReservationService{
		txManager:   txm,
		bookingRepo: br,
		seatRepo:    sr,
		opts:        opts,
		newID:       uuid.NewString,
		sleep:       sleepContext,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

type ReserveInput struct {
	ShowID      string
	SeatNumbers []string
	UserID      *string
}

// attemptOutcome は1回の試行の結果
type attemptOutcome struct {
	result  *booking.ReserveResult
	expired []string // 同じトランザクションで失効させた古い保留中予約
}

// Reserve は指定座席を仮押さえする
// 座席が取れない場合はエラーではなく FAILED の結果を返す
// 一時的な競合はリトライし、上限に達すると booking.ErrAvailabilityUndetermined を返す
func (s *ReservationService) Reserve(ctx context.Context, input ReserveInput) (*booking.ReserveResult, error) {
	input, err := normalizeReserveInput(input)
	if err != nil {
		s.countBooking("invalid")
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		outcome, err := s.reserveOnce(ctx, input)
		if err == nil {
			s.afterReserve(ctx, input.ShowID, outcome)
			return outcome.result, nil
		}
		if !isTransient(err) {
			s.countBooking("error")
			return nil, err
		}

		lastErr = err
		if attempt == s.opts.MaxRetries {
			break
		}
		s.countRetry(err)
		logger.Warn("一時的な競合のため仮押さえを再試行します",
			zap.String("show_id", input.ShowID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", s.opts.MaxRetries),
			zap.Error(err),
		)
		// トランザクションの外で待機する
		if err := s.sleep(ctx, s.backoff(attempt)); err != nil {
			s.countBooking("error")
			return nil, err
		}
	}

	s.countBooking("undetermined")
	logger.Error("リトライ上限に達しました", zap.String("show_id", input.ShowID), zap.Error(lastErr))
	return nil, fmt.Errorf("%w (%d回試行): %w", booking.ErrAvailabilityUndetermined, s.opts.MaxRetries, lastErr)
}

func (s *ReservationService) reserveOnce(ctx context.Context, input ReserveInput) (*attemptOutcome, error) {
	tx, err := s.txManager.BeginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 同一公演への仮押さえを直列化する
	if err := s.seatRepo.LockShow(ctx, tx, input.ShowID); err != nil {
		return nil, err
	}

	expired, err := s.expireStaleHolders(ctx, tx, input.ShowID, input.SeatNumbers)
	if err != nil {
		return nil, err
	}

	now, err := s.seatRepo.Now(ctx, tx)
	if err != nil {
		return nil, err
	}

	seats, err := s.seatRepo.GetForUpdateSkipLocked(ctx, tx, input.ShowID, input.SeatNumbers)
	if err != nil {
		return nil, err
	}

	if failure := checkEligibility(seats, len(input.SeatNumbers), now); failure != nil {
		// 失効処理を行った場合はその結果だけを確定させる
		if len(expired) > 0 {
			if err := tx.Commit(); err != nil {
				return nil, err
			}
		}
		return &attemptOutcome{result: failure, expired: expired}, nil
	}

	b := booking.NewBooking(s.newID(), input.ShowID, input.UserID, now)
	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.opts.HoldDuration)
	seatIDs := make([]string, len(seats))
	for i, st := range seats {
		// 読み込んだ版を条件に更新するため、遷移は複製に対して行う
		held := *st
		if err := held.Hold(expiresAt, now); err != nil {
			return nil, err
		}
		if err := s.seatRepo.Hold(ctx, tx, st.ID, st.Version, expiresAt); err != nil {
			return nil, err
		}
		seatIDs[i] = st.ID
	}

	if err := s.bookingRepo.AttachSeats(ctx, tx, b.ID, seatIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &attemptOutcome{
		result:  booking.Pending(b.ID, expiresAt, input.SeatNumbers),
		expired: expired,
	}, nil
}

// expireStaleHolders は要求座席を期限切れのまま保持している保留中予約を失敗にし、座席を解放する
// 回収処理と同じ条件付き更新を使うため、回収処理と競合しても二重に処理されない
func (s *ReservationService) expireStaleHolders(ctx context.Context, tx transaction.Tx, showID string, seatNumbers []string) ([]string, error) {
	ids, err := s.bookingRepo.ListLapsedHolderIDs(ctx, tx, showID, seatNumbers)
	if err != nil {
		return nil, err
	}

	var expired []string
	for _, id := range ids {
		failed, err := s.bookingRepo.FailIfPending(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !failed {
			continue
		}
		if _, err := s.seatRepo.ReleaseLapsedByBookingID(ctx, tx, id); err != nil {
			return nil, err
		}
		expired = append(expired, id)
	}
	return expired, nil
}

// checkEligibility は取得した座席が全て仮押さえ可能かを検査し、不可なら FAILED の結果を返す
func checkEligibility(seats []*seat.Seat, requested int, now time.Time) *booking.ReserveResult {
	// SKIP LOCKED で除外された座席や存在しない座席がある
	if len(seats) != requested {
		return booking.Failed(booking.FailureSeatsUnavailable)
	}
	for _, st := range seats {
		switch err := st.CheckEligible(now); {
		case errors.Is(err, seat.ErrSeatAlreadyBooked):
			return booking.Failed(booking.FailureSeatBooked)
		case errors.Is(err, seat.ErrSeatHeld):
			return booking.Failed(booking.FailureSeatHeld)
		}
	}
	return nil
}

func (s *ReservationService) afterReserve(ctx context.Context, showID string, outcome *attemptOutcome) {
	if outcome.result.IsPending() {
		s.countBooking("pending")
		logger.Info("座席を仮押さえしました",
			zap.String("booking_id", outcome.result.BookingID),
			zap.String("show_id", showID),
			zap.Strings("seats", outcome.result.Seats),
		)
	} else {
		s.countBooking("failed")
	}

	if len(outcome.expired) > 0 {
		logger.Info("期限切れの保留中予約を失効させました",
			zap.String("show_id", showID),
			zap.Strings("booking_ids", outcome.expired),
		)
		if s.metrics != nil {
			s.metrics.BookingsReclaimedTotal.Add(float64(len(outcome.expired)))
		}
		for _, id := range outcome.expired {
			s.publishExpired(ctx, &booking.Booking{ID: id, ShowID: showID, Status: booking.StatusFailed}, time.Now())
		}
	}

	if outcome.result.IsPending() || len(outcome.expired) > 0 {
		s.invalidate(ctx, showID)
	}
}

// Confirm は保留中の予約を確定する
// リトライはせず、競合はそのままエラーとして返す
func (s *ReservationService) Confirm(ctx context.Context, bookingID string) (*booking.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		s.countConfirmation(booking.ErrBookingNotFound)
		return nil, booking.ErrBookingNotFound
	}

	b, err := s.confirm(ctx, bookingID)
	s.countConfirmation(err)
	if err != nil {
		return nil, err
	}

	logger.Info("予約を確定しました", zap.String("booking_id", b.ID), zap.String("show_id", b.ShowID))
	s.invalidate(ctx, b.ShowID)
	if s.publisher != nil {
		if err := s.publisher.PublishConfirmed(ctx, b); err != nil {
			logger.Warn("確定イベントの発行に失敗しました", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

func (s *ReservationService) confirm(ctx context.Context, bookingID string) (*booking.Booking, error) {
	tx, err := s.txManager.BeginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := s.bookingRepo.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case booking.StatusPending:
	case booking.StatusFailed:
		// FAILED になるのは期限切れの回収・失効のみ
		return nil, booking.ErrBookingExpired
	default:
		return nil, booking.ErrInvalidState
	}

	now, err := s.seatRepo.Now(ctx, tx)
	if err != nil {
		return nil, err
	}
	seats, err := s.seatRepo.GetByBookingID(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	refs := make([]booking.SeatRef, len(seats))
	for i, st := range seats {
		switch err := st.Book(now); {
		case errors.Is(err, seat.ErrSeatNotHeld):
			return nil, booking.ErrInvalidState
		case errors.Is(err, seat.ErrHoldExpired):
			return nil, booking.ErrBookingExpired
		case err != nil:
			return nil, err
		}
		refs[i] = booking.SeatRef{SeatID: st.ID, SeatNumber: st.SeatNumber}
	}

	if err := s.bookingRepo.UpdateStatus(ctx, tx, b.ID, booking.StatusConfirmed); err != nil {
		return nil, err
	}
	booked, err := s.seatRepo.BookByBookingID(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}
	if booked != len(seats) {
		return nil, booking.ErrInvalidState
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := b.Confirm(now); err != nil {
		return nil, err
	}
	b.Seats = refs
	return b, nil
}

// GetBooking は予約を座席付きで取得する
func (s *ReservationService) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, booking.ErrBookingNotFound
	}
	return s.bookingRepo.GetByID(ctx, bookingID)
}

// ReclaimExpired は期限切れの座席を持つ保留中予約を失敗にし、座席を空席に戻す
// 1回の呼び出しを1トランザクションで処理し、エラー時は全体をロールバックする
func (s *ReservationService) ReclaimExpired(ctx context.Context) (int, error) {
	start := time.Now()
	reclaimed, err := s.reclaim(ctx)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.ReclaimTickDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return 0, err
	}
	if len(reclaimed) == 0 {
		return 0, nil
	}

	if s.metrics != nil {
		s.metrics.BookingsReclaimedTotal.Add(float64(len(reclaimed)))
	}

	showIDs := make([]string, 0, len(reclaimed))
	seen := make(map[string]struct{}, len(reclaimed))
	for _, b := range reclaimed {
		if _, ok := seen[b.ShowID]; !ok {
			seen[b.ShowID] = struct{}{}
			showIDs = append(showIDs, b.ShowID)
		}
	}
	s.invalidate(ctx, showIDs...)

	now := time.Now()
	for _, b := range reclaimed {
		s.publishExpired(ctx, b, now)
	}
	return len(reclaimed), nil
}

func (s *ReservationService) reclaim(ctx context.Context) ([]*booking.Booking, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lapsed, err := s.bookingRepo.ListLapsedPending(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(lapsed) == 0 {
		return nil, tx.Commit()
	}

	reclaimed := make([]*booking.Booking, 0, len(lapsed))
	for _, b := range lapsed {
		failed, err := s.bookingRepo.FailIfPending(ctx, tx, b.ID)
		if err != nil {
			return nil, err
		}
		if !failed {
			continue
		}
		if _, err := s.seatRepo.ReleaseLapsedByBookingID(ctx, tx, b.ID); err != nil {
			return nil, err
		}
		if err := b.Fail(time.Now()); err != nil {
			return nil, err
		}
		reclaimed = append(reclaimed, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return reclaimed, nil
}

func (s *ReservationService) publishExpired(ctx context.Context, b *booking.Booking, expiredAt time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpired(ctx, b, expiredAt); err != nil {
		logger.Warn("期限切れイベントの発行に失敗しました", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (s *ReservationService) invalidate(ctx context.Context, showIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, showIDs...); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Strings("show_ids", showIDs), zap.Error(err))
	}
}

// backoff は attempt 回目の失敗後の待機時間を返す（基準値×試行回数＋ジッター）
func (s *ReservationService) backoff(attempt int) time.Duration {
	base := s.opts.RetryBackoff
	if base <= 0 {
		return 0
	}
	return base*time.Duration(attempt) + time.Duration(rand.Int63n(int64(base)))
}

func (s *ReservationService) countBooking(status string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(status).Inc()
	}
}

func (s *ReservationService) countRetry(err error) {
	if s.metrics != nil {
		s.metrics.BookingRetriesTotal.WithLabelValues(retryReason(err)).Inc()
	}
}

func (s *ReservationService) countConfirmation(err error) {
	if s.metrics == nil {
		return
	}
	status := "confirmed"
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrBookingNotFound):
		status = "not_found"
	case errors.Is(err, booking.ErrInvalidState):
		status = "invalid_state"
	case errors.Is(err, booking.ErrBookingExpired):
		status = "expired"
	default:
		status = "error"
	}
	s.metrics.ConfirmationsTotal.WithLabelValues(status).Inc()
}

// isTransient はリトライ対象の一時的な競合かを返す
func isTransient(err error) bool {
	return transaction.IsConcurrencyConflict(err) || errors.Is(err, seat.ErrVersionConflict)
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, transaction.ErrSerializationFailure):
		return "serialization"
	case errors.Is(err, transaction.ErrDeadlock):
		return "deadlock"
	default:
		return "version_conflict"
	}
}

// normalizeReserveInput は入力を検証し、前後の空白を取り除いた入力を返す
func normalizeReserveInput(input ReserveInput) (ReserveInput, error) {
	input.ShowID = strings.TrimSpace(input.ShowID)
	if input.ShowID == "" {
		return input, fmt.Errorf("%w: show_id は必須です", booking.ErrInvalidInput)
	}
	if _, err := uuid.Parse(input.ShowID); err != nil {
		return input, fmt.Errorf("%w: show_id が不正です", booking.ErrInvalidInput)
	}
	if len(input.SeatNumbers) == 0 {
		return input, fmt.Errorf("%w: seat_numbers は1つ以上必要です", booking.ErrInvalidInput)
	}

	numbers := make([]string, len(input.SeatNumbers))
	seen := make(map[string]struct{}, len(input.SeatNumbers))
	for i, n := range input.SeatNumbers {
		n = strings.TrimSpace(n)
		if n == "" {
			return input, fmt.Errorf("%w: 空の座席番号があります", booking.ErrInvalidInput)
		}
		if _, dup := seen[n]; dup {
			return input, fmt.Errorf("%w: 座席番号 %q が重複しています", booking.ErrInvalidInput, n)
		}
		seen[n] = struct{}{}
		numbers[i] = n
	}
	input.SeatNumbers = numbers

	if input.UserID != nil && strings.TrimSpace(*input.UserID) == "" {
		input.UserID = nil
	}
	return input, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
