// Package httperr — граница HTTP: минимальный и предсказуемый маппинг
// внутренних ошибок на статус-коды. Живёт в server/*, а не в common,
// чтобы доменные пакеты не зависели от net/http.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/common"
)

// StatusCode отображает ошибку в HTTP status code.
//
// Правила:
//   - таймаут/отмена контекста → 504/408 (жизненный цикл запроса)
//   - «нет ресурса» → 404
//   - конфликт состояния (нет спинов, реклама не готова, нет базового
//     начисления) → 409
//   - ошибки валидации → 400
//   - всё остальное → 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	case errors.Is(err, common.ErrProfileNotFound),
		errors.Is(err, common.ErrOutcomeNotFound):
		return http.StatusNotFound

	case errors.Is(err, common.ErrNoSpinsAvailable),
		errors.Is(err, common.ErrAdNotReady),
		errors.Is(err, common.ErrAdSessionBusy),
		errors.Is(err, common.ErrBaseGrantMissing):
		return http.StatusConflict

	case errors.Is(err, common.ErrInvalidAmount):
		return http.StatusBadRequest

	case errors.Is(err, common.ErrNotAdmin):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Write отдаёт ошибку клиенту в JSON.
// Для 5xx наружу уходит общий текст — внутренности БД клиенту не светим,
// а локальный кеш баланса при фатальной ошибке трогать нельзя.
func Write(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)

	msg := err.Error()
	if status >= 500 {
		log.WithError(err).Error("Внутренняя ошибка запроса")
		msg = "внутренняя ошибка сервера"
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteJSON сериализует ответ в JSON с нужным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Ошибка сериализации ответа")
	}
}
