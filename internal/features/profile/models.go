// Package profile управляет профилем вовлечённости пользователя.
// models.go описывает структуру профиля.
package profile

import "time"

// Profile — запись профиля вовлечённости. Одна на пользователя.
// Поля меняются ТОЛЬКО внутри атомарных операций (леджер, резолвер,
// клейм) — прямых присваиваний из HTTP-слоя нет.
type Profile struct {
	UserID         int64      `db:"user_id"`
	CoinBalance    int64      `db:"coin_balance"`    // Баланс монет (≥ 0)
	DailyStreak    int        `db:"daily_streak"`    // Серия ежедневных заходов
	LastClaimDay   *time.Time `db:"last_claim_day"`  // Календарный день последнего клейма (nil — ещё ни разу)
	SpinsRemaining int        `db:"spins_remaining"` // Оставшиеся спины на сегодня
	SpinsResetDay  time.Time  `db:"spins_reset_day"` // День последнего пополнения спинов
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}
