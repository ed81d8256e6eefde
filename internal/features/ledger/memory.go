// Package ledger — memory.go: хранилище в памяти.
// Используется в тестах и в dev-режиме без Postgres; повторяет
// контракт атомарности репозитория под одним мьютексом.
// Ленивое дневное пополнение квоты спинов моделирует только
// Postgres-репозиторий: здесь кредит спинов — простой инкремент.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lumoplay.ru/engagement-api/internal/common"
)

// MemoryStore — потокобезопасное хранилище начислений в памяти.
type MemoryStore struct {
	mu      sync.Mutex
	grants  map[string]*Grant
	coins   map[int64]int64
	spins   map[int64]int64
	streaks map[int64]int
	claims  map[int64]time.Time
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants:  make(map[string]*Grant),
		coins:   make(map[int64]int64),
		spins:   make(map[int64]int64),
		streaks: make(map[int64]int),
		claims:  make(map[int64]time.Time),
	}
}

// Insert применяет начисление атомарно (под мьютексом).
func (m *MemoryStore) Insert(_ context.Context, g *Grant) (*Grant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.grants[g.IdempotencyKey]; ok {
		cp := *existing
		return &cp, false, nil
	}

	rec := m.recordLocked(g)
	switch rec.Kind {
	case KindSpins:
		m.spins[rec.UserID] += rec.Amount
	default:
		m.coins[rec.UserID] += rec.Amount
	}

	cp := *rec
	return &cp, true, nil
}

// InsertDailyClaim применяет клейм ежедневной награды: серия, день клейма
// и кредит монет меняются вместе с записью начисления, под одним мьютексом.
func (m *MemoryStore) InsertDailyClaim(_ context.Context, g *Grant, projectedStreak int, day time.Time) (*Grant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.grants[g.IdempotencyKey]; ok {
		cp := *existing
		return &cp, false, nil
	}
	if last, ok := m.claims[g.UserID]; ok && !last.Before(day) {
		return nil, false, fmt.Errorf("клейм за %s уже зафиксирован без начисления", common.FormatDay(day))
	}

	rec := m.recordLocked(g)
	m.streaks[g.UserID] = projectedStreak
	m.claims[g.UserID] = day
	m.coins[g.UserID] += g.Amount

	cp := *rec
	return &cp, true, nil
}

// Get возвращает запись по ключу.
func (m *MemoryStore) Get(_ context.Context, key string) (*Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.grants[key]
	if !ok {
		return nil, common.ErrBaseGrantMissing
	}
	cp := *g
	return &cp, nil
}

func (m *MemoryStore) recordLocked(g *Grant) *Grant {
	rec := &Grant{
		IdempotencyKey: g.IdempotencyKey,
		UserID:         g.UserID,
		Amount:         g.Amount,
		Kind:           g.Kind,
		AppliedAt:      time.Now(),
	}
	m.grants[rec.IdempotencyKey] = rec
	return rec
}

// Coins возвращает накопленный баланс монет пользователя (для тестов).
func (m *MemoryStore) Coins(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coins[userID]
}

// Spins возвращает накопленные спины пользователя (для тестов).
func (m *MemoryStore) Spins(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spins[userID]
}

// Streak возвращает зафиксированную серию пользователя (для тестов).
func (m *MemoryStore) Streak(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaks[userID]
}

// LastClaim возвращает день последнего клейма (для тестов).
func (m *MemoryStore) LastClaim(userID int64) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.claims[userID]
	return d, ok
}

// SeedClaim подставляет состояние серии за прошлые дни (для тестов).
func (m *MemoryStore) SeedClaim(userID int64, streak int, day time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaks[userID] = streak
	m.claims[userID] = day
}

// Len возвращает количество записей в леджере (для тестов).
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grants)
}
