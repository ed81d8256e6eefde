// Package spin — wheel.go содержит геометрию анимации колеса.
// Сервер уже знает исход ДО старта анимации; задача клиента — докрутить
// колесо ровно до выигрышного сегмента.
package spin

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
)

// Контракт анимации. Параметры отдаются клиенту вместе с исходом,
// чтобы визуализация была воспроизводимой и некэшируемой на клиенте.
const (
	// MinExtraTurns — минимум полных оборотов до остановки.
	MinExtraTurns = 2
	// MinSpinDuration — минимальная длительность анимации.
	MinSpinDuration = 2500 * time.Millisecond
	// Easing — монотонная кривая замедления без отскоков назад.
	Easing = "ease-out"
	// JitterFraction — максимальное смещение точки остановки от центра
	// сегмента, в долях ширины сегмента. Колесо не выглядит «прибитым»
	// к центру, но остаётся внутри выигрышного сегмента.
	JitterFraction = 0.4
)

// TargetAngle вычисляет конечный накопленный угол поворота колеса.
//
// Указатель стоит на нулевом угле; сегмент i занимает дугу
// [i*seg, (i+1)*seg). Целевой угол ставит центр выигрышного сегмента
// (плюс джиттер) под указатель, добирает кратчайший ход ВПЕРЁД от
// текущего накопленного поворота и добавляет MinExtraTurns полных
// оборотов. Колесо никогда не крутится назад и никогда не
// останавливается за границей выигрышного сегмента.
func TargetAngle(winningIndex, segmentCount int, currentRotation float64, rng *rand.Rand) float64 {
	segment := 360.0 / float64(segmentCount)
	jitter := (rng.Float64()*2 - 1) * JitterFraction * segment

	target := normalizeAngle(-(float64(winningIndex)*segment + segment/2) + jitter)
	current := normalizeAngle(currentRotation)

	forward := target - current
	if forward <= 0 {
		forward += 360
	}
	return currentRotation + forward + 360*MinExtraTurns
}

// normalizeAngle приводит угол к диапазону [0, 360).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
