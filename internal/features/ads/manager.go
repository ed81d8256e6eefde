// Package ads — manager.go держит рекламные сессии всех пользователей.
package ads

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/ledger"
)

// Rewarder применяет награду за досмотренную рекламу.
// Реализуется сервисом колеса: спин-кредит или удвоение выигрыша.
type Rewarder interface {
	GrantSpinCredit(ctx context.Context, userID int64, day time.Time, seq int) (*ledger.Grant, error)
	Double(ctx context.Context, userID int64, outcomeID string) (*ledger.Grant, error)
}

// Listener получает уведомления о смене состояния сессии.
type Listener func(userID int64, state State)

// Manager — машина состояний rewarded-рекламы на пользователя.
//
// Событие Rewarded — ЕДИНСТВЕННАЯ точка, где модуль рекламы имеет право
// начислять награду. Open и Close наград не дают. Идемпотентность
// держит леджер: повторная доставка события не удвоит начисление.
type Manager struct {
	mu        sync.Mutex
	sessions  map[int64]*Session
	timers    map[int64]*time.Timer
	listeners map[int]Listener
	nextID    int
	closed    bool

	provider Provider
	rewarder Rewarder
	clock    *common.Clock
	backoff  time.Duration
}

// NewManager создаёт менеджер рекламных сессий.
// backoff — пауза перед повторной загрузкой после ошибки провайдера.
func NewManager(provider Provider, rewarder Rewarder, clock *common.Clock, backoff time.Duration) *Manager {
	return &Manager{
		sessions:  make(map[int64]*Session),
		timers:    make(map[int64]*time.Timer),
		listeners: make(map[int]Listener),
		provider:  provider,
		rewarder:  rewarder,
		clock:     clock,
		backoff:   backoff,
	}
}

// Subscribe регистрирует слушателя смен состояния.
// Возвращает функцию отписки.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Status возвращает состояние сессии пользователя и флаг готовности
// к показу. Первое обращение будит сессию из Idle и запускает загрузку.
func (m *Manager) Status(userID int64) (State, bool) {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	load := m.wakeLocked(sess)
	state, canShow := sess.State, sess.canShow()
	m.mu.Unlock()

	if load {
		m.provider.Load(userID)
	}
	return state, canShow
}

// Show начинает показ рекламы с заданным назначением.
// Вне Ready показ отклоняется БЕЗ смены состояния: в Presenting — как
// занятая сессия, в остальных — как «блок не готов».
func (m *Manager) Show(userID int64, purpose Purpose, outcomeID string) (State, error) {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	if m.wakeLocked(sess) {
		state := sess.State
		m.mu.Unlock()
		m.provider.Load(userID)
		return state, common.ErrAdNotReady
	}
	if sess.State == StatePresenting {
		m.mu.Unlock()
		return StatePresenting, common.ErrAdSessionBusy
	}
	if !sess.canShow() {
		state := sess.State
		m.mu.Unlock()
		return state, common.ErrAdNotReady
	}

	today := m.clock.Today()
	if !sess.day.Equal(today) {
		sess.day = today
		sess.seq = 0
	}
	sess.seq++
	sess.purpose = purpose
	sess.outcomeID = outcomeID
	m.setStateLocked(sess, StatePresenting)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, userID, StatePresenting)
	log.WithFields(log.Fields{
		"user_id":    userID,
		"purpose":    purpose,
		"outcome_id": outcomeID,
	}).Info("Показ рекламы начат")
	return StatePresenting, nil
}

// Transition — результат применения события жизненного цикла.
type Transition struct {
	State State
	Grant *ledger.Grant
}

// HandleEvent применяет событие SDK к сессии пользователя.
// События вне ожидаемого состояния игнорируются (лог, без перехода):
// SDK может дублировать доставку, а повторное Rewarded после выдачи
// награды не должно ни падать, ни начислять второй раз.
func (m *Manager) HandleEvent(ctx context.Context, userID int64, ev Event) (*Transition, error) {
	switch ev.Type {
	case EventLoaded:
		return m.applyLoaded(userID)
	case EventOpened:
		log.WithField("user_id", userID).Debug("Реклама открыта")
		return m.currentTransition(userID), nil
	case EventRewarded:
		return m.applyRewarded(ctx, userID)
	case EventClosed:
		return m.applyClosed(userID)
	case EventError:
		return m.applyError(userID, ev.Message)
	default:
		log.WithFields(log.Fields{"user_id": userID, "type": ev.Type}).
			Warn("Неизвестное событие рекламного SDK")
		return m.currentTransition(userID), nil
	}
}

func (m *Manager) applyLoaded(userID int64) (*Transition, error) {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	if sess.State != StateLoading && sess.State != StateFailed {
		tr := &Transition{State: sess.State}
		m.mu.Unlock()
		return tr, nil
	}
	m.cancelRetryLocked(userID)
	m.setStateLocked(sess, StateReady)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, userID, StateReady)
	return &Transition{State: StateReady}, nil
}

func (m *Manager) applyRewarded(ctx context.Context, userID int64) (*Transition, error) {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	if sess.State != StatePresenting {
		// Дубликат или событие без показа: награды нет, перехода нет
		tr := &Transition{State: sess.State}
		m.mu.Unlock()
		log.WithFields(log.Fields{"user_id": userID, "state": tr.State}).
			Debug("Rewarded вне показа проигнорирован")
		return tr, nil
	}
	purpose, outcomeID := sess.purpose, sess.outcomeID
	day, seq := sess.day, sess.seq
	m.setStateLocked(sess, StateRewarded)
	listeners := m.listenersLocked()
	m.mu.Unlock()
	notify(listeners, userID, StateRewarded)

	// Начисление вне мьютекса: поход в БД не должен стопорить остальных
	var grant *ledger.Grant
	var err error
	if purpose == PurposeDouble {
		grant, err = m.rewarder.Double(ctx, userID, outcomeID)
	} else {
		grant, err = m.rewarder.GrantSpinCredit(ctx, userID, day, seq)
	}

	m.mu.Lock()
	if err != nil {
		// Возвращаемся в Presenting: клиент повторит событие, ключ
		// идемпотентности тот же, двойного начисления не будет
		m.setStateLocked(sess, StatePresenting)
		listeners = m.listenersLocked()
		m.mu.Unlock()
		notify(listeners, userID, StatePresenting)
		return nil, err
	}
	sess.purpose = ""
	sess.outcomeID = ""
	m.setStateLocked(sess, StateLoading)
	listeners = m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, userID, StateLoading)
	m.provider.Load(userID)

	log.WithFields(log.Fields{
		"user_id": userID,
		"purpose": purpose,
		"key":     grant.IdempotencyKey,
	}).Info("Награда за рекламу начислена")
	return &Transition{State: StateLoading, Grant: grant}, nil
}

func (m *Manager) applyClosed(userID int64) (*Transition, error) {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	if sess.State != StatePresenting {
		// После Rewarded сессия уже перезаряжается — закрытие штатно
		tr := &Transition{State: sess.State}
		m.mu.Unlock()
		return tr, nil
	}
	// Показ закрыт до конца ролика: награды нет
	sess.purpose = ""
	sess.outcomeID = ""
	m.setStateLocked(sess, StateLoading)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, userID, StateLoading)
	m.provider.Load(userID)
	log.WithField("user_id", userID).Info("Реклама закрыта без награды")
	return &Transition{State: StateLoading}, nil
}

func (m *Manager) applyError(userID int64, message string) (*Transition, error) {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	if sess.State != StateLoading && sess.State != StatePresenting {
		tr := &Transition{State: sess.State}
		m.mu.Unlock()
		return tr, nil
	}
	sess.purpose = ""
	sess.outcomeID = ""
	m.setStateLocked(sess, StateFailed)
	m.scheduleRetryLocked(userID)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, userID, StateFailed)
	log.WithFields(log.Fields{"user_id": userID, "message": message}).
		Warn("Ошибка рекламного провайдера")
	return &Transition{State: StateFailed}, nil
}

// Close останавливает таймеры повторных загрузок.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for userID, t := range m.timers {
		t.Stop()
		delete(m.timers, userID)
	}
}

// sessionLocked возвращает сессию пользователя, создавая её в Idle
// при первом обращении.
func (m *Manager) sessionLocked(userID int64) *Session {
	if sess, ok := m.sessions[userID]; ok {
		return sess
	}
	sess := &Session{UserID: userID, State: StateIdle, day: m.clock.Today()}
	m.sessions[userID] = sess
	return sess
}

// wakeLocked переводит сессию Idle → Loading. Возвращает true, если нужно
// дёрнуть provider.Load после снятия мьютекса. События SDK сессию не будят:
// loaded без запрошенной загрузки игнорируется в Idle.
func (m *Manager) wakeLocked(sess *Session) bool {
	if sess.State != StateIdle {
		return false
	}
	m.setStateLocked(sess, StateLoading)
	return true
}

func (m *Manager) setStateLocked(sess *Session, state State) {
	sess.State = state
}

// scheduleRetryLocked взводит таймер Failed → Loading.
// Failed отличается от Loading только этим таймером.
func (m *Manager) scheduleRetryLocked(userID int64) {
	m.cancelRetryLocked(userID)
	if m.closed {
		return
	}
	m.timers[userID] = time.AfterFunc(m.backoff, func() {
		m.retryLoad(userID)
	})
}

func (m *Manager) retryLoad(userID int64) {
	m.mu.Lock()
	delete(m.timers, userID)
	sess, ok := m.sessions[userID]
	if !ok || sess.State != StateFailed || m.closed {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(sess, StateLoading)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, userID, StateLoading)
	m.provider.Load(userID)
	log.WithField("user_id", userID).Debug("Повторная загрузка рекламного блока")
}

func (m *Manager) cancelRetryLocked(userID int64) {
	if t, ok := m.timers[userID]; ok {
		t.Stop()
		delete(m.timers, userID)
	}
}

func (m *Manager) listenersLocked() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) currentTransition(userID int64) *Transition {
	m.mu.Lock()
	sess := m.sessionLocked(userID)
	tr := &Transition{State: sess.State}
	m.mu.Unlock()
	return tr
}

func notify(listeners []Listener, userID int64, state State) {
	for _, fn := range listeners {
		fn(userID, state)
	}
}
