// Package profile — service.go содержит бизнес-логику профилей.
package profile

import (
	"context"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/config"
)

// Service управляет профилями вовлечённости.
type Service struct {
	repo  *Repository
	clock *common.Clock
	cfg   *config.Config
}

// NewService создаёт сервис профилей.
func NewService(repo *Repository, clock *common.Clock, cfg *config.Config) *Service {
	return &Service{repo: repo, clock: clock, cfg: cfg}
}

// Get возвращает профиль пользователя.
func (s *Service) Get(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// EnsureProfile гарантирует, что профиль существует.
// Вызывается при регистрации аккаунта; повторный вызов — no-op.
func (s *Service) EnsureProfile(ctx context.Context, userID int64) error {
	return s.repo.Create(ctx, userID, s.clock.Today(), s.cfg.DailyFreeSpins)
}

// RefillSpins пополняет дневную квоту спинов всем пользователям.
func (s *Service) RefillSpins(ctx context.Context) (int64, error) {
	return s.repo.RefillSpins(ctx, s.clock.Today(), s.cfg.DailyFreeSpins)
}
