// Package ledger — keys.go собирает ключи идемпотентности.
// Ключи скоупятся по пользователю/результату, чтобы оставаться
// глобально уникальными для пары (событие, вид начисления).
package ledger

import (
	"fmt"
	"time"

	"lumoplay.ru/engagement-api/internal/common"
)

// StreakKey — ключ ежедневной награды: одна на пользователя в день.
// Пример: "streak:42:2026-08-31"
func StreakKey(userID int64, day time.Time) string {
	return fmt.Sprintf("streak:%d:%s", userID, common.FormatDay(day))
}

// SpinKey — ключ базового начисления за спин: одно на результат.
// Пример: "spin:6f1c..."
func SpinKey(outcomeID string) string {
	return "spin:" + outcomeID
}

// DoubleKey — ключ удвоения: переиспользует идентичность результата,
// поэтому повторный запрос «удвоить» после таймаута не применится дважды.
func DoubleKey(outcomeID string) string {
	return SpinKey(outcomeID) + ":double"
}

// AdSpinKey — ключ рекламного спина: номер награды в пределах дня.
func AdSpinKey(userID int64, day time.Time, seq int) string {
	return fmt.Sprintf("adspin:%d:%s:%d", userID, common.FormatDay(day), seq)
}

// AdminKey — ключ ручной корректировки: внешний ключ запроса админа.
func AdminKey(requestID string) string {
	return "admin:" + requestID
}
