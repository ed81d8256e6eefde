// Package admin реализует сервисные начисления с токенной аутентификацией.
// models.go описывает структуры попыток доступа.
package admin

import "time"

// AccessAttempt — попытка доступа к админ-операции
// (для защиты от перебора токена).
type AccessAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}
