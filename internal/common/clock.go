// Package common — clock.go реализует адаптер календарного времени.
// Вся логика «раз в день» считается в одном каноническом часовом поясе
// на сервере, а не в локальном поясе клиента — иначе перевод часов
// на устройстве позволял бы забирать ежедневную награду повторно.
package common

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DayFormat — формат календарного дня для ключей идемпотентности и ответов API.
const DayFormat = "2006-01-02"

// Clock хранит канонический часовой пояс и отдаёт календарные дни.
// Единственный источник «сегодня» для всех модулей движка.
type Clock struct {
	loc *time.Location
}

// NewClock создаёт часы в заданном поясе (например "Europe/Moscow").
// Если пояс не загрузился — используем UTC+3 вручную, как и раньше.
func NewClock(timezone string) *Clock {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить пояс %s, используем UTC+3", timezone)
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return &Clock{loc: loc}
}

// NewClockAt создаёт часы с готовой локацией. Удобно в тестах.
func NewClockAt(loc *time.Location) *Clock {
	return &Clock{loc: loc}
}

// Location возвращает канонический часовой пояс.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now возвращает текущее время в каноническом поясе.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today возвращает канонический календарный день — полночь текущих суток.
func (c *Clock) Today() time.Time {
	return DayOf(c.Now())
}

// DayOf обнуляет время, оставляя только дату в поясе t.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween возвращает разницу календарных дат между a и b.
// Сравниваем компоненты даты в собственном поясе каждого значения:
// DATE из Postgres приходит как полночь UTC, и конвертация такого
// значения в пояс западнее UTC уползала бы на предыдущие сутки.
// Полуночи в UTC также не знают переходов на летнее время.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// FormatDay форматирует календарный день в строку "2006-01-02".
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}
