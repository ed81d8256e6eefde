// Package spin — repository.go выполняет операции с таблицей spin_outcomes.
package spin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumoplay.ru/engagement-api/internal/common"
)

// Repository предоставляет методы для работы с исходами спинов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий исходов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ConsumeSpinAndSave атомарно списывает один спин и фиксирует исход.
//
// Одна транзакция: профиль блокируется FOR UPDATE, квота лениво
// пополняется, если день пополнения уже прошёл (страховка на случай,
// когда полуночный крон ещё не добежал), затем проверка остатка,
// списание и вставка исхода. Два одновременных спина при одном
// оставшемся спине дадут ровно один исход.
func (r *Repository) ConsumeSpinAndSave(ctx context.Context, o *Outcome, today time.Time, freeSpins int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var spins int
	var resetDay time.Time
	err = tx.QueryRow(ctx, `
		SELECT spins_remaining, spins_reset_day
		FROM profiles
		WHERE user_id = $1
		FOR UPDATE
	`, o.UserID).Scan(&spins, &resetDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrProfileNotFound
		}
		return fmt.Errorf("ошибка блокировки профиля: %w", err)
	}

	if resetDay.Before(today) {
		spins = freeSpins
		resetDay = today
	}
	if spins <= 0 {
		return common.ErrNoSpinsAvailable
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET spins_remaining = $2, spins_reset_day = $3, updated_at = NOW()
		WHERE user_id = $1
	`, o.UserID, spins-1, resetDay)
	if err != nil {
		return fmt.Errorf("ошибка списания спина: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO spin_outcomes (outcome_id, user_id, winning_index, reward_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING issued_at
	`, o.OutcomeID, o.UserID, o.WinningIndex, o.RewardAmount).Scan(&o.IssuedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения исхода: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка коммита транзакции: %w", err)
	}
	return nil
}

// GetByID возвращает исход спина по идентификатору.
func (r *Repository) GetByID(ctx context.Context, outcomeID string) (*Outcome, error) {
	var o Outcome
	err := r.db.QueryRow(ctx, `
		SELECT outcome_id, user_id, winning_index, reward_amount, issued_at
		FROM spin_outcomes
		WHERE outcome_id = $1
	`, outcomeID).Scan(&o.OutcomeID, &o.UserID, &o.WinningIndex, &o.RewardAmount, &o.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("ошибка чтения исхода (outcome_id=%s): %w", outcomeID, err)
	}
	return &o, nil
}
