// Package admin — service.go содержит аутентификацию по токену
// и сервисные (компенсационные) начисления.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/config"
	"lumoplay.ru/engagement-api/internal/features/ledger"
)

// AttemptLog — журнал попыток доступа для защиты от перебора.
type AttemptLog interface {
	LogAttempt(ctx context.Context, userID int64, success bool) error
	GetRecentFailures(ctx context.Context, userID int64, period time.Duration) (int, error)
}

// Granter — леджер начислений.
type Granter interface {
	Grant(ctx context.Context, key string, userID, amount int64, kind ledger.Kind) (*ledger.Grant, error)
}

// Service выполняет сервисные начисления от имени поддержки.
type Service struct {
	attempts AttemptLog
	grants   Granter
	cfg      *config.Config
}

// NewService создаёт админ-сервис.
func NewService(attempts AttemptLog, grants Granter, cfg *config.Config) *Service {
	return &Service{attempts: attempts, grants: grants, cfg: cfg}
}

// VerifyToken проверяет сервисный токен по хешу Argon2id.
// Защита от перебора: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) VerifyToken(ctx context.Context, callerID int64, token string) error {
	failures, err := s.attempts.GetRecentFailures(ctx, callerID, 1*time.Hour)
	if err != nil {
		return err
	}
	if failures >= 3 {
		return common.ErrNotAdmin
	}

	match := verifyArgon2id(token, s.cfg.AdminTokenHash)

	if err := s.attempts.LogAttempt(ctx, callerID, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку доступа")
	}
	if !match {
		return common.ErrNotAdmin
	}
	return nil
}

// Grant выполняет сервисное начисление. Идемпотентность по request_id:
// повтор запроса (ретрай скрипта поддержки) вернёт исходную запись
// и не изменит баланс второй раз.
func (s *Service) Grant(ctx context.Context, requestID string, userID, amount int64, kind ledger.Kind) (*ledger.Grant, error) {
	grant, err := s.grants.Grant(ctx, ledger.AdminKey(requestID), userID, amount, kind)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"request_id": requestID,
		"user_id":    userID,
		"amount":     amount,
		"kind":       kind,
		"duplicate":  grant.Duplicate,
	}).Info("Сервисное начисление")
	return grant, nil
}

// verifyArgon2id проверяет токен по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(token, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравнение в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
