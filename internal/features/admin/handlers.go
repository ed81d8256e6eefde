// Package admin — handlers.go обрабатывает HTTP-запросы сервисных начислений.
package admin

import (
	"encoding/json"
	"net/http"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/ledger"
	"lumoplay.ru/engagement-api/internal/server/httperr"
	"lumoplay.ru/engagement-api/internal/server/middleware"
)

// Handler обрабатывает админ-запросы.
type Handler struct {
	service *Service
}

// NewHandler создаёт админ-обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type grantRequest struct {
	RequestID string `json:"requestId"`
	UserID    int64  `json:"userId"`
	Amount    int64  `json:"amount"`
	Kind      string `json:"kind"`
}

type grantResponse struct {
	IdempotencyKey string `json:"idempotencyKey"`
	UserID         int64  `json:"userId"`
	Amount         int64  `json:"amount"`
	Kind           string `json:"kind"`
	Duplicate      bool   `json:"duplicate"`
}

// HandleGrant — POST /v1/admin/grant: сервисное начисление от поддержки.
// Токен передаётся в заголовке X-Admin-Token и сверяется с Argon2id-хешем.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.UserID(ctx)

	if err := h.service.VerifyToken(ctx, callerID, r.Header.Get("X-Admin-Token")); err != nil {
		httperr.Write(w, err)
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "некорректное тело запроса"})
		return
	}
	if req.RequestID == "" || req.UserID == 0 {
		httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "requestId и userId обязательны"})
		return
	}
	kind := ledger.Kind(req.Kind)
	if kind != ledger.KindCoins && kind != ledger.KindSpins {
		httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "kind должен быть coins или spins"})
		return
	}
	if req.Amount <= 0 {
		httperr.Write(w, common.ErrInvalidAmount)
		return
	}

	grant, err := h.service.Grant(ctx, req.RequestID, req.UserID, req.Amount, kind)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, grantResponse{
		IdempotencyKey: grant.IdempotencyKey,
		UserID:         grant.UserID,
		Amount:         grant.Amount,
		Kind:           string(grant.Kind),
		Duplicate:      grant.Duplicate,
	})
}
