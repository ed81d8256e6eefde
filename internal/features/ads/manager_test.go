package ads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/ledger"
)

type fakeProvider struct {
	mu    sync.Mutex
	loads []int64
}

func (f *fakeProvider) Load(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, userID)
}

func (f *fakeProvider) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

type fakeRewarder struct {
	mu          sync.Mutex
	spinKeys    map[string]bool
	doubleCalls []string
	failNext    bool
}

func newFakeRewarder() *fakeRewarder {
	return &fakeRewarder{spinKeys: make(map[string]bool)}
}

func (f *fakeRewarder) GrantSpinCredit(_ context.Context, userID int64, day time.Time, seq int) (*ledger.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errors.New("временный сбой")
	}
	key := ledger.AdSpinKey(userID, day, seq)
	dup := f.spinKeys[key]
	f.spinKeys[key] = true
	return &ledger.Grant{IdempotencyKey: key, UserID: userID, Amount: 1, Kind: ledger.KindSpins, Duplicate: dup}, nil
}

func (f *fakeRewarder) Double(_ context.Context, userID int64, outcomeID string) (*ledger.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doubleCalls = append(f.doubleCalls, outcomeID)
	return &ledger.Grant{IdempotencyKey: ledger.DoubleKey(outcomeID), UserID: userID, Amount: 100, Kind: ledger.KindCoins}, nil
}

func (f *fakeRewarder) grantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spinKeys) + len(f.doubleCalls)
}

func newTestManager(backoff time.Duration) (*Manager, *fakeProvider, *fakeRewarder) {
	provider := &fakeProvider{}
	rewarder := newFakeRewarder()
	m := NewManager(provider, rewarder, common.NewClockAt(time.UTC), backoff)
	return m, provider, rewarder
}

func TestShowBeforeLoaded(t *testing.T) {
	m, _, _ := newTestManager(time.Second)
	defer m.Close()

	// Первый Status инициализирует сессию в Loading
	state, canShow := m.Status(1)
	if state != StateLoading || canShow {
		t.Fatalf("ожидался Loading без показа, получено %s/%v", state, canShow)
	}

	// Показ до загрузки отклоняется и НЕ меняет состояние
	if _, err := m.Show(1, PurposeSpin, ""); !errors.Is(err, common.ErrAdNotReady) {
		t.Fatalf("ожидалась ErrAdNotReady, получено %v", err)
	}
	if state, _ := m.Status(1); state != StateLoading {
		t.Errorf("отклонённый показ изменил состояние: %s", state)
	}
}

func TestFreshSessionIdleUntilWoken(t *testing.T) {
	m, provider, _ := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	// Событие SDK без запрошенной загрузки сессию не будит:
	// loaded в Idle игнорируется и не делает блок «готовым»
	tr, err := m.HandleEvent(ctx, 1, Event{Type: EventLoaded})
	if err != nil {
		t.Fatal(err)
	}
	if tr.State != StateIdle {
		t.Fatalf("ожидался Idle, получено %s", tr.State)
	}
	if provider.loadCount() != 0 {
		t.Error("загрузка запрошена без обращения клиента")
	}

	// Первое обращение клиента переводит Idle → Loading и грузит блок
	if state, _ := m.Status(1); state != StateLoading {
		t.Fatalf("после пробуждения ожидался Loading, получено %s", state)
	}
	if provider.loadCount() != 1 {
		t.Errorf("загрузок %d, ожидалась 1", provider.loadCount())
	}

	// Теперь loaded штатно ведёт в Ready
	if tr, _ = m.HandleEvent(ctx, 1, Event{Type: EventLoaded}); tr.State != StateReady {
		t.Errorf("после loaded ожидался Ready, получено %s", tr.State)
	}
}

func TestFullRewardCycle(t *testing.T) {
	m, provider, rewarder := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	m.Status(1)
	if _, err := m.HandleEvent(ctx, 1, Event{Type: EventLoaded}); err != nil {
		t.Fatal(err)
	}
	if state, canShow := m.Status(1); state != StateReady || !canShow {
		t.Fatalf("после loaded ожидался Ready, получено %s", state)
	}

	if _, err := m.Show(1, PurposeSpin, ""); err != nil {
		t.Fatalf("показ из Ready: %v", err)
	}

	// Показ занят — второй Show отклоняется
	if _, err := m.Show(1, PurposeSpin, ""); !errors.Is(err, common.ErrAdSessionBusy) {
		t.Fatalf("ожидалась ErrAdSessionBusy, получено %v", err)
	}

	tr, err := m.HandleEvent(ctx, 1, Event{Type: EventRewarded})
	if err != nil {
		t.Fatalf("rewarded: %v", err)
	}
	if tr.Grant == nil || tr.Grant.Kind != ledger.KindSpins {
		t.Fatal("награда за просмотр не начислена")
	}
	// После награды сессия перезаряжается
	if tr.State != StateLoading {
		t.Errorf("после награды ожидался Loading, получено %s", tr.State)
	}
	if provider.loadCount() == 0 {
		t.Error("перезарядка не запросила загрузку")
	}

	// Дубликат события — без второго начисления и без перехода
	before := rewarder.grantCount()
	tr2, err := m.HandleEvent(ctx, 1, Event{Type: EventRewarded})
	if err != nil {
		t.Fatal(err)
	}
	if tr2.Grant != nil {
		t.Error("дубликат rewarded начислил награду")
	}
	if rewarder.grantCount() != before {
		t.Error("дубликат rewarded дошёл до леджера")
	}

	// Закрытие после награды — штатный no-op
	if _, err := m.HandleEvent(ctx, 1, Event{Type: EventClosed}); err != nil {
		t.Fatal(err)
	}
}

func TestClosedWithoutReward(t *testing.T) {
	m, _, rewarder := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	m.Status(1)
	m.HandleEvent(ctx, 1, Event{Type: EventLoaded})
	m.Show(1, PurposeSpin, "")

	// Пользователь закрыл ролик до конца — награды нет
	tr, err := m.HandleEvent(ctx, 1, Event{Type: EventClosed})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Grant != nil || rewarder.grantCount() != 0 {
		t.Error("закрытие без досмотра начислило награду")
	}
	if tr.State != StateLoading {
		t.Errorf("после закрытия ожидался Loading, получено %s", tr.State)
	}
}

func TestDoublePurpose(t *testing.T) {
	m, _, rewarder := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	m.Status(1)
	m.HandleEvent(ctx, 1, Event{Type: EventLoaded})
	if _, err := m.Show(1, PurposeDouble, "outcome-7"); err != nil {
		t.Fatal(err)
	}

	tr, err := m.HandleEvent(ctx, 1, Event{Type: EventRewarded})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Grant == nil || tr.Grant.Kind != ledger.KindCoins {
		t.Fatal("удвоение не применено")
	}

	rewarder.mu.Lock()
	defer rewarder.mu.Unlock()
	if len(rewarder.doubleCalls) != 1 || rewarder.doubleCalls[0] != "outcome-7" {
		t.Errorf("удвоение вызвано с %v", rewarder.doubleCalls)
	}
}

func TestErrorSchedulesRetry(t *testing.T) {
	m, provider, _ := newTestManager(20 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	m.Status(1)
	loadsBefore := provider.loadCount()

	tr, err := m.HandleEvent(ctx, 1, Event{Type: EventError, Message: "no fill"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.State != StateFailed {
		t.Fatalf("после ошибки ожидался Failed, получено %s", tr.State)
	}

	// Failed неотличим от Loading снаружи, кроме таймера повтора
	deadline := time.After(2 * time.Second)
	for {
		if state, _ := m.Status(1); state == StateLoading && provider.loadCount() > loadsBefore {
			return
		}
		select {
		case <-deadline:
			t.Fatal("повторная загрузка после бэкоффа не началась")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRewardFailureKeepsPresenting(t *testing.T) {
	m, _, rewarder := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	m.Status(1)
	m.HandleEvent(ctx, 1, Event{Type: EventLoaded})
	m.Show(1, PurposeSpin, "")

	rewarder.mu.Lock()
	rewarder.failNext = true
	rewarder.mu.Unlock()

	if _, err := m.HandleEvent(ctx, 1, Event{Type: EventRewarded}); err == nil {
		t.Fatal("сбой начисления должен вернуться ошибкой")
	}
	// Сессия осталась в Presenting — клиент повторит событие
	if state, _ := m.Status(1); state != StatePresenting {
		t.Fatalf("после сбоя ожидался Presenting, получено %s", state)
	}

	tr, err := m.HandleEvent(ctx, 1, Event{Type: EventRewarded})
	if err != nil {
		t.Fatalf("повтор события: %v", err)
	}
	if tr.Grant == nil {
		t.Fatal("повтор события не начислил награду")
	}
}

func TestSubscribeNotify(t *testing.T) {
	m, _, _ := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var states []State
	unsubscribe := m.Subscribe(func(_ int64, state State) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})

	m.Status(1)
	m.HandleEvent(ctx, 1, Event{Type: EventLoaded})
	m.Show(1, PurposeSpin, "")

	mu.Lock()
	got := append([]State(nil), states...)
	mu.Unlock()
	want := []State{StateReady, StatePresenting}
	if len(got) != len(want) {
		t.Fatalf("уведомлений %d, ожидалось %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("уведомление %d: %s, ожидалось %s", i, got[i], want[i])
		}
	}

	unsubscribe()
	m.HandleEvent(ctx, 1, Event{Type: EventRewarded})
	mu.Lock()
	after := len(states)
	mu.Unlock()
	if after != len(want) {
		t.Error("уведомления приходят после отписки")
	}
}

func TestSeqAdvancesPerShow(t *testing.T) {
	m, _, rewarder := newTestManager(time.Second)
	defer m.Close()
	ctx := context.Background()

	m.Status(1)
	for i := 0; i < 3; i++ {
		m.HandleEvent(ctx, 1, Event{Type: EventLoaded})
		if _, err := m.Show(1, PurposeSpin, ""); err != nil {
			t.Fatalf("показ %d: %v", i, err)
		}
		tr, err := m.HandleEvent(ctx, 1, Event{Type: EventRewarded})
		if err != nil {
			t.Fatal(err)
		}
		if tr.Grant.Duplicate {
			t.Errorf("показ %d: награда помечена дубликатом", i)
		}
	}

	rewarder.mu.Lock()
	defer rewarder.mu.Unlock()
	if len(rewarder.spinKeys) != 3 {
		t.Errorf("ключей начислений %d, ожидалось 3", len(rewarder.spinKeys))
	}
}
