// Package ledger — service.go содержит бизнес-логику начислений.
// Все остальные модули (ежедневные награды, спины, реклама, админка)
// меняют баланс ТОЛЬКО через этот сервис.
package ledger

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/common"
)

// Service управляет леджером начислений.
type Service struct {
	store Store
}

// NewService создаёт сервис леджера.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Grant применяет начисление идемпотентно.
// Повторный вызов с тем же ключом возвращает исходную запись
// с Duplicate=true и НЕ кредитует баланс второй раз.
func (s *Service) Grant(ctx context.Context, key string, userID, amount int64, kind Kind) (*Grant, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	rec, inserted, err := s.store.Insert(ctx, &Grant{
		IdempotencyKey: key,
		UserID:         userID,
		Amount:         amount,
		Kind:           kind,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка начисления %q: %w", key, err)
	}

	if !inserted {
		rec.Duplicate = true
		// Дубликат — это успех-no-op, а не ошибка
		log.WithFields(log.Fields{
			"key":     key,
			"user_id": userID,
		}).Debug("Повторное начисление проигнорировано")
		return rec, nil
	}

	log.WithFields(log.Fields{
		"key":     key,
		"user_id": userID,
		"amount":  amount,
		"kind":    kind,
	}).Info("Начисление применено")
	return rec, nil
}

// GrantClaim применяет клейм ежедневной награды: фиксация серии и кредит
// монет идут одной транзакцией хранилища. Повтор с тем же ключом возвращает
// исходную запись с Duplicate=true, серию не трогает.
func (s *Service) GrantClaim(ctx context.Context, key string, userID, amount int64, projectedStreak int, day time.Time) (*Grant, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	rec, inserted, err := s.store.InsertDailyClaim(ctx, &Grant{
		IdempotencyKey: key,
		UserID:         userID,
		Amount:         amount,
		Kind:           KindCoins,
	}, projectedStreak, day)
	if err != nil {
		return nil, fmt.Errorf("ошибка клейма %q: %w", key, err)
	}

	if !inserted {
		rec.Duplicate = true
		log.WithFields(log.Fields{
			"key":     key,
			"user_id": userID,
		}).Debug("Повторный клейм проигнорирован")
		return rec, nil
	}

	log.WithFields(log.Fields{
		"key":     key,
		"user_id": userID,
		"amount":  amount,
		"streak":  projectedStreak,
	}).Info("Клейм применён")
	return rec, nil
}

// Double удваивает выигрыш спина: начисляет ещё раз сумму результата
// под ключом "<spin-key>:double". Идентичность результата в ключе
// гарантирует, что повтор запроса после таймаута не применится дважды.
// Если БАЗОВОЕ начисление за спин отсутствует — это ошибка, а не повод
// начислить базу неявно.
func (s *Service) Double(ctx context.Context, outcomeID string, userID, amount int64) (*Grant, error) {
	if _, err := s.store.Get(ctx, SpinKey(outcomeID)); err != nil {
		return nil, err
	}
	return s.Grant(ctx, DoubleKey(outcomeID), userID, amount, KindCoins)
}

// Lookup возвращает запись начисления по ключу (для обработчиков).
func (s *Service) Lookup(ctx context.Context, key string) (*Grant, error) {
	return s.store.Get(ctx, key)
}
