// Package ledger — store.go описывает контракт хранилища начислений.
package ledger

import (
	"context"
	"time"
)

// Store — хранилище начислений. Контракт атомарности:
// вставка записи и изменение соответствующих полей профиля происходят
// в одной транзакции («всё или ничего»). При существующем ключе
// хранилище возвращает исходную запись и inserted=false, не трогая баланс.
type Store interface {
	// Insert применяет начисление атомарно (insert-if-absent + инкремент).
	Insert(ctx context.Context, g *Grant) (rec *Grant, inserted bool, err error)
	// InsertDailyClaim применяет клейм ежедневной награды: фиксация серии,
	// день клейма и кредит монет — одна транзакция с записью начисления.
	InsertDailyClaim(ctx context.Context, g *Grant, projectedStreak int, day time.Time) (rec *Grant, inserted bool, err error)
	// Get возвращает запись по ключу или common.ErrBaseGrantMissing.
	Get(ctx context.Context, key string) (*Grant, error)
}
