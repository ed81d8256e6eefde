package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lumoplay.ru/engagement-api/internal/common"
)

func TestGrantIdempotent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Grant(ctx, "streak:1:2026-08-31", 1, 100, KindCoins)
	if err != nil {
		t.Fatalf("первое начисление: %v", err)
	}
	if first.Duplicate {
		t.Error("первое начисление помечено дубликатом")
	}

	// Повторы с тем же ключом: баланс не меняется, запись одна
	for i := 0; i < 5; i++ {
		g, err := svc.Grant(ctx, "streak:1:2026-08-31", 1, 100, KindCoins)
		if err != nil {
			t.Fatalf("повтор %d: %v", i, err)
		}
		if !g.Duplicate {
			t.Errorf("повтор %d не помечен дубликатом", i)
		}
		if g.Amount != 100 {
			t.Errorf("повтор %d вернул сумму %d вместо исходной", i, g.Amount)
		}
	}

	if got := store.Coins(1); got != 100 {
		t.Errorf("баланс %d, ожидалось 100", got)
	}
	if store.Len() != 1 {
		t.Errorf("записей %d, ожидалась 1", store.Len())
	}
}

func TestGrantConcurrent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Grant(ctx, "spin:abc", 7, 50, KindCoins); err != nil {
				t.Errorf("параллельное начисление: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.Coins(7); got != 50 {
		t.Errorf("баланс после 20 параллельных начислений: %d, ожидалось 50", got)
	}
}

func TestGrantInvalidAmount(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	for _, amount := range []int64{0, -10} {
		if _, err := svc.Grant(ctx, "k", 1, amount, KindCoins); !errors.Is(err, common.ErrInvalidAmount) {
			t.Errorf("amount=%d: ожидалась ErrInvalidAmount, получено %v", amount, err)
		}
	}
}

func TestGrantKinds(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, "adspin:1:2026-08-31:1", 1, 1, KindSpins); err != nil {
		t.Fatal(err)
	}
	if got := store.Spins(1); got != 1 {
		t.Errorf("спинов %d, ожидался 1", got)
	}
	if got := store.Coins(1); got != 0 {
		t.Errorf("начисление спинов тронуло монеты: %d", got)
	}
}

func TestGrantClaim(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	day := mustDay(t, "2026-08-31")

	first, err := svc.GrantClaim(ctx, StreakKey(5, day), 5, 75, 2, day)
	if err != nil {
		t.Fatalf("клейм: %v", err)
	}
	if first.Duplicate {
		t.Error("первый клейм помечен дубликатом")
	}

	// Серия, день клейма и монеты зафиксированы одной операцией хранилища
	if got := store.Streak(5); got != 2 {
		t.Errorf("серия %d, ожидалась 2", got)
	}
	if d, ok := store.LastClaim(5); !ok || !d.Equal(day) {
		t.Errorf("день клейма %v, ожидался %v", d, day)
	}
	if got := store.Coins(5); got != 75 {
		t.Errorf("баланс %d, ожидалось 75", got)
	}

	// Повтор того же дня — дубликат, профиль не трогается
	second, err := svc.GrantClaim(ctx, StreakKey(5, day), 5, 75, 3, day)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Duplicate {
		t.Error("повторный клейм не помечен дубликатом")
	}
	if got := store.Streak(5); got != 2 {
		t.Errorf("повторный клейм сдвинул серию: %d", got)
	}
	if got := store.Coins(5); got != 75 {
		t.Errorf("повторный клейм изменил баланс: %d", got)
	}
}

func TestDoubleRequiresBaseGrant(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	// Удвоение без базового начисления — ошибка, а не неявная база
	if _, err := svc.Double(ctx, "missing-outcome", 1, 100); !errors.Is(err, common.ErrBaseGrantMissing) {
		t.Fatalf("ожидалась ErrBaseGrantMissing, получено %v", err)
	}
}

func TestDoubleIdempotent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, SpinKey("o-1"), 3, 200, KindCoins); err != nil {
		t.Fatal(err)
	}

	first, err := svc.Double(ctx, "o-1", 3, 200)
	if err != nil {
		t.Fatalf("первое удвоение: %v", err)
	}
	if first.Duplicate {
		t.Error("первое удвоение помечено дубликатом")
	}

	second, err := svc.Double(ctx, "o-1", 3, 200)
	if err != nil {
		t.Fatalf("повторное удвоение: %v", err)
	}
	if !second.Duplicate {
		t.Error("повторное удвоение не помечено дубликатом")
	}

	// База 200 + одно удвоение 200 = 400
	if got := store.Coins(3); got != 400 {
		t.Errorf("баланс %d, ожидалось 400", got)
	}
}

func TestKeys(t *testing.T) {
	day := mustDay(t, "2026-08-31")

	tests := []struct {
		got  string
		want string
	}{
		{StreakKey(42, day), "streak:42:2026-08-31"},
		{SpinKey("6f1c"), "spin:6f1c"},
		{DoubleKey("6f1c"), "spin:6f1c:double"},
		{AdSpinKey(42, day, 2), "adspin:42:2026-08-31:2"},
		{AdminKey("req-7"), "admin:req-7"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("ключ %q, ожидался %q", tt.got, tt.want)
		}
	}
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(common.DayFormat, s)
	if err != nil {
		t.Fatalf("некорректная дата %q: %v", s, err)
	}
	return d
}
