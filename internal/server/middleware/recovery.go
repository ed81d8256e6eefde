package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/server/httperr"
)

// Recover перехватывает панику в обработчике, логирует стек
// и отдаёт клиенту 500 вместо оборванного соединения.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", rec),
					"path":      r.URL.Path,
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				httperr.WriteJSON(w, http.StatusInternalServerError,
					map[string]string{"error": "внутренняя ошибка сервера"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
