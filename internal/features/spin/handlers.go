// Package spin — handlers.go обрабатывает HTTP-запросы колеса.
package spin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumoplay.ru/engagement-api/internal/server/httperr"
	"lumoplay.ru/engagement-api/internal/server/middleware"
)

// Handler обрабатывает HTTP-запросы колеса.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик колеса.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type spinRequest struct {
	// Накопленный угол поворота колеса на клиенте. Нужен, чтобы
	// следующая анимация продолжала вращение вперёд, а не прыгала.
	CurrentRotation float64 `json:"currentRotation"`
}

type outcomeResponse struct {
	OutcomeID    string `json:"outcomeId"`
	WinningIndex int    `json:"winningIndex"`
	Label        string `json:"label"`
	RewardAmount int64  `json:"rewardAmount"`
	IssuedAt     string `json:"issuedAt"`
	Doubled      bool   `json:"doubled"`
}

type spinResponse struct {
	Outcome   outcomeResponse `json:"outcome"`
	Animation *Animation      `json:"animation,omitempty"`
}

func buildOutcomeResponse(res *SpinResult) outcomeResponse {
	return outcomeResponse{
		OutcomeID:    res.Outcome.OutcomeID,
		WinningIndex: res.Outcome.WinningIndex,
		Label:        res.Prize.Label,
		RewardAmount: res.Outcome.RewardAmount,
		IssuedAt:     res.Outcome.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
		Doubled:      res.Doubled,
	}
}

// HandleSpin — POST /v1/spin: разыграть спин.
// Исход и начисление фиксируются ДО ответа; клиенту остаётся только
// анимация. При нуле спинов — 409.
func (h *Handler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req spinRequest
	if r.Body != nil {
		// Пустое тело допустимо: колесо ещё не крутилось
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res, err := h.service.ResolveSpin(ctx, userID, req.CurrentRotation)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	anim := res.Animation
	httperr.WriteJSON(w, http.StatusOK, spinResponse{
		Outcome:   buildOutcomeResponse(res),
		Animation: &anim,
	})
}

// HandleGetOutcome — GET /v1/spin/outcomes/{outcomeID}: перечитать исход.
// Клиент дергает его после сбоя сети, чтобы показать фактический
// результат; недоначисленный кредит здесь же долечивается.
func (h *Handler) HandleGetOutcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)
	outcomeID := chi.URLParam(r, "outcomeID")

	res, err := h.service.GetOutcome(ctx, userID, outcomeID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, spinResponse{Outcome: buildOutcomeResponse(res)})
}
