package admin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/argon2"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/config"
	"lumoplay.ru/engagement-api/internal/features/ledger"
)

// encodeArgon2id собирает хеш в том же формате, что и генератор токенов.
func encodeArgon2id(token string) string {
	salt := []byte("0123456789abcdef")
	var (
		iterations  uint32 = 3
		memory      uint32 = 65536
		parallelism uint8  = 2
	)
	hash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

type fakeAttemptLog struct {
	mu       sync.Mutex
	failures int
	logged   []bool
}

func (f *fakeAttemptLog) LogAttempt(_ context.Context, _ int64, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, success)
	if !success {
		f.failures++
	}
	return nil
}

func (f *fakeAttemptLog) GetRecentFailures(_ context.Context, _ int64, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures, nil
}

func newAdminService(t *testing.T, token string) (*Service, *fakeAttemptLog, *ledger.MemoryStore) {
	t.Helper()
	attempts := &fakeAttemptLog{}
	store := ledger.NewMemoryStore()
	cfg := &config.Config{AdminTokenHash: encodeArgon2id(token)}
	return NewService(attempts, ledger.NewService(store), cfg), attempts, store
}

func TestVerifyToken(t *testing.T) {
	svc, attempts, _ := newAdminService(t, "correct-token")
	ctx := context.Background()

	if err := svc.VerifyToken(ctx, 1, "correct-token"); err != nil {
		t.Fatalf("верный токен отклонён: %v", err)
	}
	if err := svc.VerifyToken(ctx, 1, "wrong"); !errors.Is(err, common.ErrNotAdmin) {
		t.Fatalf("неверный токен: ожидалась ErrNotAdmin, получено %v", err)
	}

	attempts.mu.Lock()
	defer attempts.mu.Unlock()
	if len(attempts.logged) != 2 {
		t.Errorf("записано попыток %d, ожидалось 2", len(attempts.logged))
	}
}

func TestVerifyTokenBruteForceLockout(t *testing.T) {
	svc, _, _ := newAdminService(t, "correct-token")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.VerifyToken(ctx, 1, "wrong")
	}
	// После трёх неудач блокируется даже верный токен
	if err := svc.VerifyToken(ctx, 1, "correct-token"); !errors.Is(err, common.ErrNotAdmin) {
		t.Fatalf("ожидалась блокировка, получено %v", err)
	}
}

func TestVerifyTokenBadHashFormat(t *testing.T) {
	attempts := &fakeAttemptLog{}
	cfg := &config.Config{AdminTokenHash: "не-хеш"}
	svc := NewService(attempts, ledger.NewService(ledger.NewMemoryStore()), cfg)

	if err := svc.VerifyToken(context.Background(), 1, "любой"); !errors.Is(err, common.ErrNotAdmin) {
		t.Fatalf("сломанный хеш должен отклонять всех: %v", err)
	}
}

func TestAdminGrantIdempotent(t *testing.T) {
	svc, _, store := newAdminService(t, "x")
	ctx := context.Background()

	first, err := svc.Grant(ctx, "req-1", 42, 500, ledger.KindCoins)
	if err != nil {
		t.Fatalf("начисление: %v", err)
	}
	if first.Duplicate {
		t.Error("первое начисление помечено дубликатом")
	}

	// Ретрай скрипта поддержки с тем же request_id
	second, err := svc.Grant(ctx, "req-1", 42, 500, ledger.KindCoins)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Duplicate {
		t.Error("повтор не помечен дубликатом")
	}
	if got := store.Coins(42); got != 500 {
		t.Errorf("баланс %d, ожидалось 500", got)
	}
}
