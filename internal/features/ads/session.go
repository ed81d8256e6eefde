// Package ads реализует серверное зеркало жизненного цикла rewarded-рекламы.
// Клиентский SDK шлёт события показа; сервер держит машину состояний
// на пользователя и является ЕДИНСТВЕННОЙ точкой начисления наград
// за просмотр. session.go описывает состояния, события и сессию.
package ads

import "time"

// State — состояние рекламной сессии пользователя.
type State string

const (
	StateIdle       State = "idle"       // Сессия создана, загрузка ещё не запрашивалась
	StateLoading    State = "loading"    // Блок запрошен у провайдера
	StateReady      State = "ready"      // Блок загружен, можно показывать
	StatePresenting State = "presenting" // Показ идёт
	StateRewarded   State = "rewarded"   // Просмотр досмотрен, награда выдана
	StateFailed     State = "failed"     // Загрузка упала, ждём повтор
)

// EventType — событие жизненного цикла от клиентского SDK.
type EventType string

const (
	EventLoaded   EventType = "loaded"
	EventOpened   EventType = "opened"
	EventRewarded EventType = "rewarded"
	EventClosed   EventType = "closed"
	EventError    EventType = "error"
)

// Event — событие показа рекламы.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"` // Текст ошибки для EventError
}

// Purpose — зачем пользователь смотрит рекламу.
type Purpose string

const (
	// PurposeSpin — дополнительный спин при исчерпанной квоте.
	PurposeSpin Purpose = "spin"
	// PurposeDouble — удвоение выигрыша конкретного исхода.
	PurposeDouble Purpose = "double"
)

// Session — рекламная сессия одного пользователя.
// Все поля меняются только под мьютексом менеджера.
type Session struct {
	UserID int64
	State  State

	// Назначение текущего показа; выставляется в Show, гасится после награды
	purpose   Purpose
	outcomeID string

	// Счётчик наград за день: входит в ключ идемпотентности начисления спина
	day time.Time
	seq int
}

// canShow — показ разрешён только из Ready. В любом другом состоянии
// Show отклоняется БЕЗ смены состояния.
func (s *Session) canShow() bool {
	return s.State == StateReady
}
