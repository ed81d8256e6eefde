// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях движка наград.
// Эти ошибки позволяют HTTP-слою различать типы проблем
// и отдавать клиенту корректный статус-код.
package common

import "errors"

// Ошибки профилей
var (
	// ErrProfileNotFound — профиль пользователя не найден в базе
	ErrProfileNotFound = errors.New("профиль пользователя не найден")
)

// Ошибки колеса фортуны
var (
	// ErrNoSpinsAvailable — спины закончились, ждём сброса или рекламу
	ErrNoSpinsAvailable = errors.New("спины закончились")
	// ErrOutcomeNotFound — результат спина не найден
	ErrOutcomeNotFound = errors.New("результат спина не найден")
)

// Ошибки леджера начислений
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrBaseGrantMissing — попытка удвоить выигрыш, который не был начислен
	ErrBaseGrantMissing = errors.New("базовое начисление не найдено, удвоение невозможно")
)

// Ошибки рекламного модуля
var (
	// ErrAdNotReady — показ рекламы запрошен вне состояния Ready
	ErrAdNotReady = errors.New("реклама ещё не готова к показу")
	// ErrAdSessionBusy — реклама уже показывается
	ErrAdSessionBusy = errors.New("реклама уже показывается")
)

// Ошибки админки
var (
	// ErrNotAdmin — неверный админ-токен
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)
