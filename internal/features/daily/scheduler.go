// Package daily — scheduler.go вычисляет право на ежедневную награду.
// Чистая машина состояний: из сохранённого профиля и канонического
// «сегодня» считает eligible, позицию цикла и новую серию.
// Никаких побочных эффектов — атомарный клейм перепроверяет результат сам.
package daily

import (
	"time"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/profile"
)

// Evaluation — результат оценки права на ежедневную награду.
type Evaluation struct {
	Eligible        bool // Можно ли забрать награду сегодня
	CyclePosition   int  // Позиция лестницы 1..7 (сегодняшняя или уже забранная)
	ProjectedStreak int  // Серия ПОСЛЕ клейма (или текущая, если уже забрано)
	Gap             int  // Дней с последнего клейма (-1 — клеймов ещё не было)
}

// Evaluate вычисляет право на клейм.
//
// Разрыв считается по границам суток канонического пояса,
// НИКОГДА по часам клиента — перевод часов на устройстве не должен
// давать повторную награду.
//
// Правила:
//   - клеймов не было → серия начинается: позиция 1
//   - gap == 0 → уже забрано сегодня, позиция забранного дня ((streak-1) mod 7)+1
//   - gap == 1 → серия продолжается: streak+1, позиция (streak mod 7)+1
//   - gap >= 2 → серия сломана: начинаем заново с позиции 1
func Evaluate(p *profile.Profile, today time.Time) Evaluation {
	if p.LastClaimDay == nil {
		return Evaluation{Eligible: true, CyclePosition: 1, ProjectedStreak: 1, Gap: -1}
	}

	gap := common.DaysBetween(*p.LastClaimDay, today)
	switch {
	case gap <= 0:
		// gap < 0 означает last_claim_day «из будущего» — такое возможно
		// только при ручном вмешательстве в БД; трактуем как «уже забрано»
		return Evaluation{
			Eligible:        false,
			CyclePosition:   claimedPosition(p.DailyStreak),
			ProjectedStreak: p.DailyStreak,
			Gap:             gap,
		}
	case gap == 1:
		return Evaluation{
			Eligible:        true,
			CyclePosition:   p.DailyStreak%7 + 1,
			ProjectedStreak: p.DailyStreak + 1,
			Gap:             gap,
		}
	default:
		return Evaluation{Eligible: true, CyclePosition: 1, ProjectedStreak: 1, Gap: gap}
	}
}

// claimedPosition — позиция дня, который уже забран: ((streak-1) mod 7) + 1.
func claimedPosition(streak int) int {
	if streak <= 0 {
		return 1
	}
	return (streak-1)%7 + 1
}

// GridCell — одна ячейка календаря ежедневных наград для экрана чек-ина.
type GridCell struct {
	Day           int   `json:"day"`
	Reward        int64 `json:"reward"`
	Claimed       bool  `json:"claimed"`
	CurrentTarget bool  `json:"isCurrentTarget"`
}

// BuildGrid собирает 7 ячеек календаря из оценки.
// Забранные ячейки — позиции до текущей в рамках цикла; при сломанной
// серии календарь пустой и целью становится позиция 1.
func BuildGrid(ev Evaluation) []GridCell {
	cells := make([]GridCell, 0, len(RewardLadder))
	for _, entry := range RewardLadder {
		cell := GridCell{Day: entry.CyclePosition, Reward: entry.RewardAmount}
		if ev.Eligible {
			cell.Claimed = entry.CyclePosition < ev.CyclePosition
			cell.CurrentTarget = entry.CyclePosition == ev.CyclePosition
		} else {
			cell.Claimed = entry.CyclePosition <= ev.CyclePosition
		}
		cells = append(cells, cell)
	}
	return cells
}
