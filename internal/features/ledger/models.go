// Package ledger реализует леджер начислений — ЕДИНСТВЕННЫЙ механизм,
// через который меняется баланс монет и количество спинов пользователя.
// models.go описывает запись начисления и виды начислений.
package ledger

import "time"

// Kind — вид начисления: на что применяется сумма.
type Kind string

const (
	// KindCoins — начисление монет на баланс
	KindCoins Kind = "coins"
	// KindSpins — начисление спинов (рекламный бонус)
	KindSpins Kind = "spins"
)

// Grant — одна запись начисления. Таблица grants append-only:
// записи никогда не обновляются и не удаляются.
// Ключ идемпотентности глобально уникален: повторная вставка с тем же
// ключом возвращает исходную запись и НЕ меняет баланс.
type Grant struct {
	IdempotencyKey string    `db:"idempotency_key"`
	UserID         int64     `db:"user_id"`
	Amount         int64     `db:"amount"`
	Kind           Kind      `db:"kind"`
	AppliedAt      time.Time `db:"applied_at"`

	// Duplicate выставляется сервисом, когда запись уже существовала.
	// В БД не хранится — это сигнал для логов и ответа клиенту.
	Duplicate bool `db:"-"`
}
