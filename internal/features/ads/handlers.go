// Package ads — handlers.go обрабатывает HTTP-запросы рекламного модуля.
package ads

import (
	"encoding/json"
	"net/http"

	"lumoplay.ru/engagement-api/internal/server/httperr"
	"lumoplay.ru/engagement-api/internal/server/middleware"
)

// Handler обрабатывает HTTP-запросы рекламных сессий.
type Handler struct {
	manager *Manager
}

// NewHandler создаёт обработчик рекламы.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type statusResponse struct {
	State   State `json:"state"`
	CanShow bool  `json:"canShow"`
}

type showRequest struct {
	Purpose   Purpose `json:"purpose"`
	OutcomeID string  `json:"outcomeId,omitempty"`
}

type showResponse struct {
	State State `json:"state"`
}

type eventResponse struct {
	State          State  `json:"state"`
	GrantedAmount  int64  `json:"grantedAmount,omitempty"`
	GrantedKind    string `json:"grantedKind,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// HandleStatus — GET /v1/ads/status: состояние сессии и готовность к показу.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	state, canShow := h.manager.Status(userID)
	httperr.WriteJSON(w, http.StatusOK, statusResponse{State: state, CanShow: canShow})
}

// HandleShow — POST /v1/ads/show: начать показ с заданным назначением.
// Вне Ready — 409 без смены состояния.
func (h *Handler) HandleShow(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req showRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "некорректное тело запроса"})
		return
	}
	switch req.Purpose {
	case PurposeSpin:
	case PurposeDouble:
		if req.OutcomeID == "" {
			httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "для удвоения нужен outcomeId"})
			return
		}
	default:
		httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "неизвестное назначение показа"})
		return
	}

	state, err := h.manager.Show(userID, req.Purpose, req.OutcomeID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, showResponse{State: state})
}

// HandleEvent — POST /v1/ads/events: событие жизненного цикла от SDK.
// Единственный путь, которым просмотр превращается в награду.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		httperr.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "некорректное тело запроса"})
		return
	}

	tr, err := h.manager.HandleEvent(ctx, userID, ev)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	resp := eventResponse{State: tr.State}
	if tr.Grant != nil {
		resp.GrantedAmount = tr.Grant.Amount
		resp.GrantedKind = string(tr.Grant.Kind)
		resp.IdempotencyKey = tr.Grant.IdempotencyKey
	}
	httperr.WriteJSON(w, http.StatusOK, resp)
}
