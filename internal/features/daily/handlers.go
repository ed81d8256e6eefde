// Package daily — handlers.go обрабатывает HTTP-запросы ежедневных наград.
package daily

import (
	"net/http"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/server/httperr"
	"lumoplay.ru/engagement-api/internal/server/middleware"
)

// Handler обрабатывает HTTP-запросы ежедневных наград.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик ежедневных наград.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type statusResponse struct {
	Eligible      bool       `json:"eligible"`
	CyclePosition int        `json:"cyclePosition"`
	Streak        int        `json:"streak"`
	Grid          []GridCell `json:"grid"`
}

type claimResponse struct {
	Day            string `json:"day"`
	CyclePosition  int    `json:"cyclePosition"`
	RewardAmount   int64  `json:"rewardAmount"`
	Streak         int    `json:"streak"`
	AlreadyClaimed bool   `json:"alreadyClaimed"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// HandleStatus — GET /v1/daily: право на клейм и календарь наград.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	ev, grid, err := h.service.Status(ctx, userID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, statusResponse{
		Eligible:      ev.Eligible,
		CyclePosition: ev.CyclePosition,
		Streak:        ev.ProjectedStreak,
		Grid:          grid,
	})
}

// HandleClaim — POST /v1/daily/claim: забрать ежедневную награду.
// Повторный запрос за тот же день возвращает исходное начисление (200),
// баланс не меняется.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	res, err := h.service.Claim(ctx, userID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, claimResponse{
		Day:            common.FormatDay(res.Day),
		CyclePosition:  res.CyclePosition,
		RewardAmount:   res.RewardAmount,
		Streak:         res.Streak,
		AlreadyClaimed: res.AlreadyClaimed,
		IdempotencyKey: res.IdempotencyKey,
	})
}
