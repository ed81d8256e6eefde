// Package ledger — repository.go выполняет операции с таблицей grants.
// Начисление и изменение профиля идут в ОДНОЙ транзакции БД:
// либо запись вставлена и профиль обновлён, либо ничего не произошло.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/config"
)

// Repository — Postgres-реализация Store.
type Repository struct {
	db        *pgxpool.Pool
	clock     *common.Clock
	freeSpins int
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool, clock *common.Clock, cfg *config.Config) *Repository {
	return &Repository{db: db, clock: clock, freeSpins: cfg.DailyFreeSpins}
}

// Insert применяет начисление. Вставка insert-if-absent по ключу
// идемпотентности; при конфликте возвращаем существующую запись,
// баланс НЕ инкрементируется повторно.
func (r *Repository) Insert(ctx context.Context, g *Grant) (*Grant, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, existing, err := r.insertGrantLocked(ctx, tx, g)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		return existing, false, tx.Commit(ctx)
	}

	if err := r.creditProfileLocked(ctx, tx, g); err != nil {
		// Откат по defer: запись начисления тоже не сохранится
		return nil, false, err
	}

	rec, err := scanGrant(tx.QueryRow(ctx, selectGrantSQL, g.IdempotencyKey))
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения начисления: %w", err)
	}
	return rec, true, tx.Commit(ctx)
}

// InsertDailyClaim применяет клейм ежедневной награды одной транзакцией:
// запись начисления, новая серия, день клейма и кредит монет коммитятся
// вместе. Падение между «серия продвинута» и «монеты начислены» невозможно,
// иначе награда дня терялась бы при ретрае уже после полуночи.
func (r *Repository) InsertDailyClaim(ctx context.Context, g *Grant, projectedStreak int, day time.Time) (*Grant, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, existing, err := r.insertGrantLocked(ctx, tx, g)
	if err != nil {
		return nil, false, err
	}
	// Параллельный клейм того же дня упирается в уникальность ключа,
	// поэтому сюда он приходит дубликатом, а не вторым UPDATE
	if !inserted {
		return existing, false, tx.Commit(ctx)
	}

	ct, err := tx.Exec(ctx, `
		UPDATE profiles
		SET daily_streak = $2, last_claim_day = $3,
		    coin_balance = coin_balance + $4, updated_at = NOW()
		WHERE user_id = $1
		  AND (last_claim_day IS NULL OR last_claim_day < $3)
	`, g.UserID, projectedStreak, day, g.Amount)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка фиксации клейма: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`, g.UserID).Scan(&exists); err != nil {
			return nil, false, fmt.Errorf("ошибка проверки профиля: %w", err)
		}
		if !exists {
			return nil, false, common.ErrProfileNotFound
		}
		// Профиль уже отмечен этим или более поздним днём, а начисления нет:
		// такое состояние достижимо только правкой БД вручную
		return nil, false, fmt.Errorf("клейм за %s уже зафиксирован без начисления", common.FormatDay(day))
	}

	rec, err := scanGrant(tx.QueryRow(ctx, selectGrantSQL, g.IdempotencyKey))
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения начисления: %w", err)
	}
	return rec, true, tx.Commit(ctx)
}

// insertGrantLocked вставляет запись начисления в рамках транзакции.
// При конфликте ключа возвращает существующую запись и inserted=false.
func (r *Repository) insertGrantLocked(ctx context.Context, tx pgx.Tx, g *Grant) (bool, *Grant, error) {
	ct, err := tx.Exec(ctx, `
		INSERT INTO grants (idempotency_key, user_id, amount, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, g.IdempotencyKey, g.UserID, g.Amount, string(g.Kind))
	if err != nil {
		return false, nil, fmt.Errorf("ошибка вставки начисления: %w", err)
	}
	if ct.RowsAffected() == 0 {
		existing, err := scanGrant(tx.QueryRow(ctx, selectGrantSQL, g.IdempotencyKey))
		if err != nil {
			return false, nil, fmt.Errorf("ошибка чтения существующего начисления: %w", err)
		}
		return false, existing, nil
	}
	return true, nil, nil
}

// creditProfileLocked инкрементирует поле профиля, соответствующее виду
// начисления. Кредит спинов сначала применяет ленивое дневное пополнение:
// иначе более поздний спин увидел бы spins_reset_day < сегодня и перезаписал
// квоту, съев рекламный кредит.
func (r *Repository) creditProfileLocked(ctx context.Context, tx pgx.Tx, g *Grant) error {
	var ct pgconn.CommandTag
	var err error
	switch g.Kind {
	case KindSpins:
		ct, err = tx.Exec(ctx, `
			UPDATE profiles
			SET spins_remaining = CASE WHEN spins_reset_day < $3 THEN $4 ELSE spins_remaining END + $2,
			    spins_reset_day = GREATEST(spins_reset_day, $3),
			    updated_at = NOW()
			WHERE user_id = $1
		`, g.UserID, g.Amount, r.clock.Today(), r.freeSpins)
	default:
		ct, err = tx.Exec(ctx, `
			UPDATE profiles
			SET coin_balance = coin_balance + $2, updated_at = NOW()
			WHERE user_id = $1
		`, g.UserID, g.Amount)
	}
	if err != nil {
		return fmt.Errorf("ошибка инкремента профиля: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}

// Get возвращает запись начисления по ключу.
func (r *Repository) Get(ctx context.Context, key string) (*Grant, error) {
	g, err := scanGrant(r.db.QueryRow(ctx, selectGrantSQL, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrBaseGrantMissing
		}
		return nil, fmt.Errorf("ошибка чтения начисления: %w", err)
	}
	return g, nil
}

const selectGrantSQL = `
	SELECT idempotency_key, user_id, amount, kind, applied_at
	FROM grants
	WHERE idempotency_key = $1
`

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	var kind string
	if err := row.Scan(&g.IdempotencyKey, &g.UserID, &g.Amount, &kind, &g.AppliedAt); err != nil {
		return nil, err
	}
	g.Kind = Kind(kind)
	return &g, nil
}
