// Package spin — models.go содержит структуры данных колеса.
package spin

import "time"

// Outcome — зафиксированный исход спина. Создаётся сервером ДО старта
// анимации на клиенте и никогда не меняется.
type Outcome struct {
	OutcomeID    string    `db:"outcome_id"`
	UserID       int64     `db:"user_id"`
	WinningIndex int       `db:"winning_index"`
	RewardAmount int64     `db:"reward_amount"`
	IssuedAt     time.Time `db:"issued_at"`
}
