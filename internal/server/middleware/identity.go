// Package middleware содержит промежуточные обработчики HTTP:
// идентификация пользователя, логирование, восстановление после
// паники и rate-limiting.
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"lumoplay.ru/engagement-api/internal/server/httperr"
)

type ctxKey int

const userIDKey ctxKey = iota

// RequireUser извлекает идентификатор пользователя из заголовка X-User-ID
// и кладёт его в контекст запроса. Сама аутентификация — забота внешнего
// слоя (API-гейтвея); движок наград доверяет уже проверенному заголовку.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || id <= 0 {
			httperr.WriteJSON(w, http.StatusBadRequest,
				map[string]string{"error": "некорректный или отсутствующий X-User-ID"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID возвращает идентификатор пользователя из контекста.
// Ноль означает, что RequireUser не отработал (ошибка маршрутизации).
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
