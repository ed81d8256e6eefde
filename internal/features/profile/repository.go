// Package profile — repository.go выполняет операции с таблицей profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumoplay.ru/engagement-api/internal/common"
)

// Repository предоставляет методы для работы с таблицей profiles.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий профилей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create создаёт профиль нового пользователя с дневной квотой спинов.
func (r *Repository) Create(ctx context.Context, userID int64, today time.Time, freeSpins int) error {
	query := `
		INSERT INTO profiles (user_id, coin_balance, daily_streak, spins_remaining, spins_reset_day)
		VALUES ($1, 0, 0, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, freeSpins, today)
	if err != nil {
		return fmt.Errorf("ошибка создания профиля: %w", err)
	}
	return nil
}

// GetByUserID возвращает профиль пользователя.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
	query := `
		SELECT user_id, coin_balance, daily_streak, last_claim_day,
		       spins_remaining, spins_reset_day, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.CoinBalance, &p.DailyStreak, &p.LastClaimDay,
		&p.SpinsRemaining, &p.SpinsResetDay, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrProfileNotFound
		}
		return nil, fmt.Errorf("ошибка чтения профиля (user_id=%d): %w", userID, err)
	}
	return &p, nil
}

// RefillSpins пополняет спины до дневной квоты всем, у кого день
// пополнения уже прошёл. Вызывается кроном в полночь канонического пояса.
func (r *Repository) RefillSpins(ctx context.Context, today time.Time, freeSpins int) (int64, error) {
	query := `
		UPDATE profiles
		SET spins_remaining = $2, spins_reset_day = $1, updated_at = NOW()
		WHERE spins_reset_day < $1
	`
	ct, err := r.db.Exec(ctx, query, today, freeSpins)
	if err != nil {
		return 0, fmt.Errorf("ошибка пополнения спинов: %w", err)
	}
	return ct.RowsAffected(), nil
}
