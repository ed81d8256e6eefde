// Package profile — handlers.go отдаёт профиль HTTP-клиенту.
package profile

import (
	"net/http"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/server/httperr"
	"lumoplay.ru/engagement-api/internal/server/middleware"
)

// Handler обрабатывает HTTP-запросы профиля.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик профилей.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// profileResponse — ответ GET /v1/profile.
// Клиент обязан рендерить ровно эти значения: баланс на экране меняется
// только после подтверждённого ответа сервера, никаких оптимистичных
// локальных прибавок.
type profileResponse struct {
	UserID         int64  `json:"userId"`
	CoinBalance    int64  `json:"coinBalance"`
	DailyStreak    int    `json:"dailyStreak"`
	LastClaimDay   string `json:"lastClaimDay,omitempty"`
	SpinsRemaining int    `json:"spinsRemaining"`
}

// HandleGet — GET /v1/profile: баланс, серия, оставшиеся спины.
// Профиль создаётся лениво при первом обращении.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if err := h.service.EnsureProfile(ctx, userID); err != nil {
		httperr.Write(w, err)
		return
	}
	p, err := h.service.Get(ctx, userID)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	resp := profileResponse{
		UserID:         p.UserID,
		CoinBalance:    p.CoinBalance,
		DailyStreak:    p.DailyStreak,
		SpinsRemaining: p.SpinsRemaining,
	}
	if p.LastClaimDay != nil {
		resp.LastClaimDay = common.FormatDay(*p.LastClaimDay)
	}
	httperr.WriteJSON(w, http.StatusOK, resp)
}
