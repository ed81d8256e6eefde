// Package spin реализует колесо фортуны: серверный резолвер исхода,
// геометрию анимации и выдачу наград через леджер.
// table.go содержит таблицу призов и взвешенный выбор сегмента.
package spin

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Prize — один сегмент колеса.
type Prize struct {
	Label  string  `json:"label"`
	Amount int64   `json:"amount"`
	Weight float64 `json:"-"`
}

// WheelPrizes — фиксированная таблица колеса, 8 сегментов.
// Порядок сегментов совпадает с отрисовкой на клиенте: индекс исхода
// однозначно задаёт угол остановки.
// Джекпот остаётся в таблице ради геометрии колеса, но с нулевым весом:
// резолвер никогда его не выбирает.
var WheelPrizes = []Prize{
	{Label: "20", Amount: 20, Weight: 0.30},
	{Label: "50", Amount: 50, Weight: 0.25},
	{Label: "100", Amount: 100, Weight: 0.20},
	{Label: "200", Amount: 200, Weight: 0.10},
	{Label: "500", Amount: 500, Weight: 0.05},
	{Label: "1K", Amount: 1000, Weight: 0.02},
	{Label: "Билет", Amount: 50, Weight: 0.08},
	{Label: "ДЖЕКПОТ", Amount: 5000, Weight: 0.00},
}

// SegmentCount — число сегментов колеса.
const SegmentCount = 8

// Picker выбирает индекс приза пропорционально весам таблицы.
// Потокобезопасен: генератор под мьютексом, sampleuv.Weighted после
// каждого Take восстанавливает вес взятого элемента (выбор с возвращением).
type Picker struct {
	mu       sync.Mutex
	weighted sampleuv.Weighted
	weights  []float64
}

// NewPicker создаёт выборщик призов над таблицей weights.
func NewPicker(prizes []Prize, src rand.Source) *Picker {
	weights := make([]float64, len(prizes))
	for i, p := range prizes {
		weights[i] = p.Weight
	}
	return &Picker{
		weighted: sampleuv.NewWeighted(weights, src),
		weights:  weights,
	}
}

// NewDefaultPicker создаёт выборщик над WheelPrizes с сидом от часов.
func NewDefaultPicker() *Picker {
	return NewPicker(WheelPrizes, rand.NewSource(uint64(time.Now().UnixNano())))
}

// Pick возвращает индекс выигрышного сегмента.
// Сегменты с нулевым весом не выпадают никогда.
func (p *Picker) Pick() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.weighted.Take()
	if !ok {
		// Все веса нулевые — конфигурация сломана, отдаём минимальный приз
		return 0
	}
	// Take обнуляет вес взятого элемента; возвращаем его для следующего спина
	p.weighted.Reweight(idx, p.weights[idx])
	return idx
}
