// Package spin — service.go содержит бизнес-логику колеса фортуны.
package spin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/config"
	"lumoplay.ru/engagement-api/internal/features/ledger"
)

// OutcomeStore — контракт хранилища исходов.
type OutcomeStore interface {
	ConsumeSpinAndSave(ctx context.Context, o *Outcome, today time.Time, freeSpins int) error
	GetByID(ctx context.Context, outcomeID string) (*Outcome, error)
}

// Granter — леджер начислений.
type Granter interface {
	Grant(ctx context.Context, key string, userID, amount int64, kind ledger.Kind) (*ledger.Grant, error)
	Double(ctx context.Context, outcomeID string, userID, amount int64) (*ledger.Grant, error)
	Lookup(ctx context.Context, key string) (*ledger.Grant, error)
}

// Service управляет спинами колеса.
type Service struct {
	store  OutcomeStore
	grants Granter
	picker *Picker
	clock  *common.Clock
	cfg    *config.Config

	mu  sync.Mutex
	rng *rand.Rand // джиттер анимации, под мьютексом
}

// NewService создаёт сервис колеса.
func NewService(store OutcomeStore, grants Granter, picker *Picker, clock *common.Clock, cfg *config.Config) *Service {
	return &Service{
		store:  store,
		grants: grants,
		picker: picker,
		clock:  clock,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

// Animation — контракт синхронизации анимации для клиента.
type Animation struct {
	TargetRotation float64 `json:"targetRotation"`
	MinDurationMs  int64   `json:"minDurationMs"`
	Easing         string  `json:"easing"`
	MinExtraTurns  int     `json:"minExtraTurns"`
}

// SpinResult — исход спина вместе с контрактом анимации.
type SpinResult struct {
	Outcome   *Outcome
	Prize     Prize
	Doubled   bool
	Grant     *ledger.Grant
	Animation Animation
}

// ResolveSpin разыгрывает спин: исход определяется ЗДЕСЬ, до старта
// анимации на клиенте. Списание спина и фиксация исхода атомарны;
// начисление идёт следом через леджер и идемпотентно по outcome_id,
// так что упавший между шагами запрос долечивается повтором.
func (s *Service) ResolveSpin(ctx context.Context, userID int64, currentRotation float64) (*SpinResult, error) {
	idx := s.picker.Pick()
	o := &Outcome{
		OutcomeID:    uuid.NewString(),
		UserID:       userID,
		WinningIndex: idx,
		RewardAmount: WheelPrizes[idx].Amount,
	}

	if err := s.store.ConsumeSpinAndSave(ctx, o, s.clock.Today(), s.cfg.DailyFreeSpins); err != nil {
		return nil, err
	}

	grant, err := s.grants.Grant(ctx, ledger.SpinKey(o.OutcomeID), userID, o.RewardAmount, ledger.KindCoins)
	if err != nil {
		return nil, fmt.Errorf("ошибка начисления выигрыша (outcome_id=%s): %w", o.OutcomeID, err)
	}

	log.WithFields(log.Fields{
		"user_id":       userID,
		"outcome_id":    o.OutcomeID,
		"winning_index": idx,
		"amount":        o.RewardAmount,
	}).Info("Спин разыгран")

	return &SpinResult{
		Outcome:   o,
		Prize:     WheelPrizes[idx],
		Grant:     grant,
		Animation: s.animationFor(idx, currentRotation),
	}, nil
}

// GetOutcome возвращает зафиксированный исход.
// Повторно прогоняет начисление через леджер: если исходный запрос упал
// после фиксации исхода, но до кредита, чтение долечит начисление.
func (s *Service) GetOutcome(ctx context.Context, userID int64, outcomeID string) (*SpinResult, error) {
	o, err := s.store.GetByID(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, common.ErrOutcomeNotFound
	}

	grant, err := s.grants.Grant(ctx, ledger.SpinKey(o.OutcomeID), userID, o.RewardAmount, ledger.KindCoins)
	if err != nil {
		return nil, fmt.Errorf("ошибка долечивания начисления (outcome_id=%s): %w", o.OutcomeID, err)
	}

	doubled := false
	if _, err := s.grants.Lookup(ctx, ledger.DoubleKey(o.OutcomeID)); err == nil {
		doubled = true
	} else if !errors.Is(err, common.ErrBaseGrantMissing) {
		return nil, err
	}

	return &SpinResult{
		Outcome: o,
		Prize:   WheelPrizes[o.WinningIndex],
		Doubled: doubled,
		Grant:   grant,
	}, nil
}

// Double удваивает выигрыш исхода. Вызывается ТОЛЬКО рекламным модулем
// по событию Rewarded. Удвоение без базового начисления невозможно,
// повторное удвоение — no-op: оба инварианта держит леджер.
func (s *Service) Double(ctx context.Context, userID int64, outcomeID string) (*ledger.Grant, error) {
	o, err := s.store.GetByID(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, common.ErrOutcomeNotFound
	}
	return s.grants.Double(ctx, outcomeID, userID, o.RewardAmount)
}

// GrantSpinCredit начисляет дополнительный спин за просмотр рекламы.
// Ключ идемпотентности включает день и порядковый номер показа.
func (s *Service) GrantSpinCredit(ctx context.Context, userID int64, day time.Time, seq int) (*ledger.Grant, error) {
	return s.grants.Grant(ctx, ledger.AdSpinKey(userID, day, seq), userID, 1, ledger.KindSpins)
}

func (s *Service) animationFor(winningIndex int, currentRotation float64) Animation {
	s.mu.Lock()
	target := TargetAngle(winningIndex, SegmentCount, currentRotation, s.rng)
	s.mu.Unlock()
	return Animation{
		TargetRotation: target,
		MinDurationMs:  MinSpinDuration.Milliseconds(),
		Easing:         Easing,
		MinExtraTurns:  MinExtraTurns,
	}
}
