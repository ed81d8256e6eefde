// Package daily управляет ежедневными наградами и серией заходов.
// ladder.go содержит лестницу наград 7-дневного цикла.
package daily

// LadderEntry — одна позиция лестницы наград.
type LadderEntry struct {
	CyclePosition int   `json:"day"`    // Позиция в цикле (1..7)
	RewardAmount  int64 `json:"reward"` // Награда в монетах
}

// RewardLadder — лестница наград: ровно 7 позиций, цикличная.
// После 7-й позиции начинается НОВЫЙ цикл с позиции 1 (не с нуля).
var RewardLadder = [7]LadderEntry{
	{CyclePosition: 1, RewardAmount: 50},
	{CyclePosition: 2, RewardAmount: 75},
	{CyclePosition: 3, RewardAmount: 100},
	{CyclePosition: 4, RewardAmount: 125},
	{CyclePosition: 5, RewardAmount: 150},
	{CyclePosition: 6, RewardAmount: 200},
	{CyclePosition: 7, RewardAmount: 500}, // Главный приз за полную неделю
}

// LadderAmount возвращает награду для позиции цикла 1..7.
func LadderAmount(cyclePosition int) int64 {
	if cyclePosition < 1 || cyclePosition > len(RewardLadder) {
		return RewardLadder[0].RewardAmount
	}
	return RewardLadder[cyclePosition-1].RewardAmount
}
