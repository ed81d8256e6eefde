// Package daily — service.go содержит бизнес-логику клейма ежедневной награды.
package daily

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/ledger"
	"lumoplay.ru/engagement-api/internal/features/profile"
)

// ProfileStore — контракт чтения профилей для планировщика серий.
// Запись серии идёт не сюда, а через леджер: фиксация клейма и кредит
// монет обязаны коммититься одной транзакцией.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*profile.Profile, error)
}

// Granter — леджер начислений.
type Granter interface {
	Grant(ctx context.Context, key string, userID, amount int64, kind ledger.Kind) (*ledger.Grant, error)
	GrantClaim(ctx context.Context, key string, userID, amount int64, projectedStreak int, day time.Time) (*ledger.Grant, error)
}

// Service управляет ежедневными наградами.
type Service struct {
	profiles ProfileStore
	grants   Granter
	clock    *common.Clock
}

// NewService создаёт сервис ежедневных наград.
func NewService(profiles ProfileStore, grants Granter, clock *common.Clock) *Service {
	return &Service{profiles: profiles, grants: grants, clock: clock}
}

// ClaimResult — итог клейма ежедневной награды.
type ClaimResult struct {
	Day            time.Time
	CyclePosition  int
	RewardAmount   int64
	Streak         int
	AlreadyClaimed bool
	IdempotencyKey string
	Grant          *ledger.Grant
}

// Status возвращает оценку права на клейм и календарь наград.
func (s *Service) Status(ctx context.Context, userID int64) (Evaluation, []GridCell, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return Evaluation{}, nil, err
	}
	ev := Evaluate(p, s.clock.Today())
	return ev, BuildGrid(ev), nil
}

// Claim забирает ежедневную награду.
//
// Фиксация серии и кредит монет — одна транзакция леджера: упасть между
// «серия продвинута» и «монеты начислены» невозможно. Гонку параллельных
// клеймов гасит уникальность ключа идемпотентности: проигравший запрос
// получает исходное начисление с пометкой дубликата.
func (s *Service) Claim(ctx context.Context, userID int64) (*ClaimResult, error) {
	today := s.clock.Today()

	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ev := Evaluate(p, today)

	key := ledger.StreakKey(userID, today)
	amount := LadderAmount(ev.CyclePosition)

	// last_claim_day «из будущего» возможен только при правке БД вручную:
	// сегодня ничего не забиралось, начислять нечего. Gap == -1 при
	// отсутствии клеймов — другой случай, там идёт первый клейм.
	if p.LastClaimDay != nil && ev.Gap < 0 {
		log.WithFields(log.Fields{
			"user_id": userID,
			"day":     common.FormatDay(today),
			"gap":     ev.Gap,
		}).Warn("Клейм при last_claim_day из будущего пропущен")
		return &ClaimResult{
			Day:            today,
			CyclePosition:  ev.CyclePosition,
			RewardAmount:   amount,
			Streak:         ev.ProjectedStreak,
			AlreadyClaimed: true,
			IdempotencyKey: key,
		}, nil
	}

	var grant *ledger.Grant
	if ev.Eligible {
		grant, err = s.grants.GrantClaim(ctx, key, userID, amount, ev.ProjectedStreak, today)
	} else {
		// Уже забрано сегодня: вернуть исходное начисление; если запись
		// потерялась при ручном вмешательстве — восстановить её
		grant, err = s.grants.Grant(ctx, key, userID, amount, ledger.KindCoins)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":        userID,
		"day":            common.FormatDay(today),
		"cycle_position": ev.CyclePosition,
		"streak":         ev.ProjectedStreak,
		"amount":         grant.Amount,
		"duplicate":      grant.Duplicate,
	}).Info("Клейм ежедневной награды")

	return &ClaimResult{
		Day:            today,
		CyclePosition:  ev.CyclePosition,
		RewardAmount:   grant.Amount,
		Streak:         ev.ProjectedStreak,
		AlreadyClaimed: !ev.Eligible || grant.Duplicate,
		IdempotencyKey: grant.IdempotencyKey,
		Grant:          grant,
	}, nil
}
