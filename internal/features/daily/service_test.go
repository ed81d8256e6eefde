package daily

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/ledger"
	"lumoplay.ru/engagement-api/internal/features/profile"
)

// fakeProfiles читает профиль из того же хранилища, куда клейм пишет:
// состояние серии живёт в леджере, как и в боевой таблице profiles.
type fakeProfiles struct {
	mu    sync.Mutex
	store *ledger.MemoryStore
	known map[int64]bool
}

func newFakeProfiles(store *ledger.MemoryStore) *fakeProfiles {
	return &fakeProfiles{store: store, known: make(map[int64]bool)}
}

func (f *fakeProfiles) add(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known[userID] = true
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID int64) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[userID] {
		return nil, common.ErrProfileNotFound
	}
	p := &profile.Profile{UserID: userID, DailyStreak: f.store.Streak(userID)}
	if d, ok := f.store.LastClaim(userID); ok {
		p.LastClaimDay = &d
	}
	return p, nil
}

func newTestService(t *testing.T) (*Service, *fakeProfiles, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	profiles := newFakeProfiles(store)
	svc := NewService(profiles, ledger.NewService(store), common.NewClockAt(time.UTC))
	return svc, profiles, store
}

func TestClaimFirstDay(t *testing.T) {
	svc, profiles, store := newTestService(t)
	profiles.add(1)
	ctx := context.Background()

	res, err := svc.Claim(ctx, 1)
	if err != nil {
		t.Fatalf("клейм: %v", err)
	}
	if res.AlreadyClaimed {
		t.Error("первый клейм помечен повторным")
	}
	if res.CyclePosition != 1 || res.RewardAmount != 50 || res.Streak != 1 {
		t.Errorf("позиция=%d награда=%d серия=%d", res.CyclePosition, res.RewardAmount, res.Streak)
	}
	if got := store.Coins(1); got != 50 {
		t.Errorf("баланс %d, ожидалось 50", got)
	}
	if got := store.Streak(1); got != 1 {
		t.Errorf("серия в хранилище %d, ожидалась 1", got)
	}
}

func TestClaimTwiceSameDay(t *testing.T) {
	svc, profiles, store := newTestService(t)
	profiles.add(1)
	ctx := context.Background()

	if _, err := svc.Claim(ctx, 1); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Claim(ctx, 1)
	if err != nil {
		t.Fatalf("повторный клейм должен быть no-op, а не ошибкой: %v", err)
	}
	if !res.AlreadyClaimed {
		t.Error("повторный клейм не помечен")
	}
	if got := store.Coins(1); got != 50 {
		t.Errorf("повторный клейм изменил баланс: %d", got)
	}
	if store.Len() != 1 {
		t.Errorf("записей в леджере %d, ожидалась 1", store.Len())
	}
}

func TestClaimConcurrent(t *testing.T) {
	svc, profiles, store := newTestService(t)
	profiles.add(1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Claim(ctx, 1); err != nil {
				t.Errorf("параллельный клейм: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.Coins(1); got != 50 {
		t.Errorf("10 параллельных клеймов начислили %d, ожидалось 50", got)
	}
	if got := store.Streak(1); got != 1 {
		t.Errorf("серия %d, ожидалась 1", got)
	}
}

func TestClaimProfileMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Claim(context.Background(), 404); err == nil {
		t.Fatal("клейм без профиля должен вернуть ошибку")
	}
}

// TestStreakProgression прогоняет серию через границы цикла,
// подставляя состояние за прошлые дни напрямую в хранилище.
func TestStreakProgression(t *testing.T) {
	svc, profiles, store := newTestService(t)
	ctx := context.Background()
	today := svc.clock.Today()

	tests := []struct {
		name       string
		userID     int64
		streak     int
		daysAgo    int
		wantAmount int64
		wantStreak int
	}{
		{"продолжение на вторую позицию", 101, 1, 1, 75, 2},
		{"шестая серия даёт главный приз", 102, 6, 1, 500, 7},
		{"после полной недели новый цикл", 103, 7, 1, 50, 8},
		{"пропуск дня сбрасывает на 50", 104, 6, 2, 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles.add(tt.userID)
			store.SeedClaim(tt.userID, tt.streak, today.AddDate(0, 0, -tt.daysAgo))

			res, err := svc.Claim(ctx, tt.userID)
			if err != nil {
				t.Fatal(err)
			}
			if res.AlreadyClaimed {
				t.Error("клейм неожиданно помечен повторным")
			}
			if res.RewardAmount != tt.wantAmount {
				t.Errorf("награда %d, ожидалось %d", res.RewardAmount, tt.wantAmount)
			}
			if res.Streak != tt.wantStreak {
				t.Errorf("серия %d, ожидалось %d", res.Streak, tt.wantStreak)
			}
			if got := store.Coins(tt.userID); got != tt.wantAmount {
				t.Errorf("начислено %d, ожидалось %d", got, tt.wantAmount)
			}
			if got := store.Streak(tt.userID); got != tt.wantStreak {
				t.Errorf("серия в хранилище %d, ожидалось %d", got, tt.wantStreak)
			}
		})
	}
}

// failingClaims имитирует недоступность БД на клейме.
type failingClaims struct {
	ledger.Store
}

func (f failingClaims) InsertDailyClaim(context.Context, *ledger.Grant, int, time.Time) (*ledger.Grant, bool, error) {
	return nil, false, errors.New("соединение с БД потеряно")
}

// TestClaimFailureLeavesStreakUntouched: упавший клейм не должен продвигать
// серию — иначе награда дня пропадает, а ретрай после полуночи идёт уже
// под новым ключом.
func TestClaimFailureLeavesStreakUntouched(t *testing.T) {
	store := ledger.NewMemoryStore()
	profiles := newFakeProfiles(store)
	svc := NewService(profiles, ledger.NewService(failingClaims{store}), common.NewClockAt(time.UTC))
	ctx := context.Background()

	profiles.add(7)
	yesterday := svc.clock.Today().AddDate(0, 0, -1)
	store.SeedClaim(7, 6, yesterday)

	if _, err := svc.Claim(ctx, 7); err == nil {
		t.Fatal("клейм при недоступной БД должен вернуть ошибку")
	}
	if got := store.Streak(7); got != 6 {
		t.Errorf("серия продвинута до %d без начисления", got)
	}
	if d, _ := store.LastClaim(7); !d.Equal(yesterday) {
		t.Errorf("день клейма сдвинут на %v", d)
	}
	if got := store.Coins(7); got != 0 {
		t.Errorf("баланс %d при упавшем клейме", got)
	}

	// После восстановления БД награда седьмого дня всё ещё доступна
	ok := NewService(profiles, ledger.NewService(store), common.NewClockAt(time.UTC))
	res, err := ok.Claim(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.RewardAmount != 500 || res.Streak != 7 {
		t.Errorf("награда=%d серия=%d, ожидалось 500 и 7", res.RewardAmount, res.Streak)
	}
}

// TestClaimFutureLastClaimDay: день клейма «из будущего» трактуется как
// «уже забрано» и НЕ порождает начисление за сегодня.
func TestClaimFutureLastClaimDay(t *testing.T) {
	svc, profiles, store := newTestService(t)
	ctx := context.Background()

	profiles.add(9)
	store.SeedClaim(9, 3, svc.clock.Today().AddDate(0, 0, 1))

	res, err := svc.Claim(ctx, 9)
	if err != nil {
		t.Fatalf("клейм с будущим днём не должен падать: %v", err)
	}
	if !res.AlreadyClaimed {
		t.Error("клейм не помечен повторным")
	}
	if got := store.Coins(9); got != 0 {
		t.Errorf("начислено %d, ожидалось 0", got)
	}
	if store.Len() != 0 {
		t.Errorf("в леджере %d записей, ожидалось 0", store.Len())
	}
	if got := store.Streak(9); got != 3 {
		t.Errorf("серия изменена: %d", got)
	}
}
