package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/infrastructure/sqlite"
)

var (
	cst   = time.FixedZone("CST", 8*3600)
	jan10 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	jan11 = time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	// 09:00 on Jan 10 in Shanghai
	runAt = time.Date(2024, 1, 10, 9, 0, 0, 0, cst)
)

func fixedNow() time.Time { return runAt }

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type placed struct {
	Account string
	SlotID  string
	DishID  string
	Address string
}

// fakeCatalog is a scripted remote. A successful PlaceOrder flips the slot to
// ordered, so the next ListSlots reflects it the way the platform would.
type fakeCatalog struct {
	mu sync.Mutex

	passwords map[string]string
	slots     map[string][]meal.Slot
	dishes    map[string][]meal.Dish
	dishErr   map[string]error
	orderErr  map[string]error
	// listErrs are returned by successive ListSlots calls before any
	// succeeds.
	listErrs []error

	listCalls int
	dishCalls []string
	orders    []placed
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		passwords: map[string]string{},
		slots:     map[string][]meal.Slot{},
		dishes:    map[string][]meal.Dish{},
		dishErr:   map[string]error{},
		orderErr:  map[string]error{},
	}
}

func (f *fakeCatalog) Login(_ context.Context, email, password string) (meal.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return meal.Session{}, &meal.AuthError{Account: email, Err: errors.New("bad credentials")}
	}
	return meal.Session{Account: email, Token: "tok-" + email, IssuedAt: runAt}, nil
}

func (f *fakeCatalog) ListSlots(_ context.Context, s meal.Session, _ meal.DateRange) ([]meal.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	return append([]meal.Slot(nil), f.slots[s.Account]...), nil
}

func (f *fakeCatalog) ListDishes(_ context.Context, _ meal.Session, slot meal.Slot) ([]meal.Dish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dishCalls = append(f.dishCalls, slot.ID)
	if err := f.dishErr[slot.ID]; err != nil {
		return nil, err
	}
	return f.dishes[slot.ID], nil
}

func (f *fakeCatalog) PlaceOrder(_ context.Context, s meal.Session, slot meal.Slot, dish meal.Dish, addressID string) (meal.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.orderErr[slot.ID]; err != nil {
		return meal.Receipt{}, err
	}
	f.orders = append(f.orders, placed{Account: s.Account, SlotID: slot.ID, DishID: dish.ID, Address: addressID})
	for i, sl := range f.slots[s.Account] {
		if sl.ID == slot.ID && sl.Date.Equal(slot.Date) {
			f.slots[s.Account][i].Status = meal.StatusOrdered
			f.slots[s.Account][i].RawStatus = "ORDER"
			f.slots[s.Account][i].OrderedDish = dish.Name
		}
	}
	return meal.Receipt{OrderID: fmt.Sprintf("o-%d", len(f.orders)), Status: "SUCCESSFUL"}, nil
}

func (f *fakeCatalog) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func availableSlot(id, label string, date time.Time, hour int) meal.Slot {
	target := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, cst)
	return meal.Slot{
		ID:         id,
		Label:      label,
		TargetTime: target,
		Date:       date,
		Status:     meal.StatusAvailable,
		RawStatus:  "AVAILABLE",
		AddressID:  "addr-" + id,
	}
}

// harness wires the real use cases over an in-memory store and a fake
// catalog.
type harness struct {
	store   *sqlite.Store
	catalog *fakeCatalog
	auto    usecases.AutoOrder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat := newFakeCatalog()
	log := quietLog()
	rec := usecases.Reconciler{Catalog: cat, Snapshots: store, Ledger: store, Location: cst, Now: fixedNow, Log: log}
	runner := usecases.OrderRunner{
		Catalog:   cat,
		Snapshots: store,
		Ledger:    store,
		Policy:    meal.Policy{Intn: func(int) int { return 0 }},
		Location:  cst,
		Now:       fixedNow,
		Log:       log,
	}
	return &harness{
		store:   store,
		catalog: cat,
		auto: usecases.AutoOrder{
			Users:        store,
			Creds:        usecases.CredentialsService{GlobalPassword: "global-pw"},
			Catalog:      cat,
			Reconciler:   rec,
			Runner:       runner,
			Keyword:      "自助",
			HorizonDays:  7,
			FetchRetries: 3,
			Concurrency:  2,
			Now:          fixedNow,
			Log:          log,
		},
	}
}

func (h *harness) addUser(t *testing.T, id, email string) user.User {
	t.Helper()
	u := user.User{ID: id, Email: email, Active: true, CreatedAt: runAt.UTC()}
	require.NoError(t, h.store.Create(context.Background(), u))
	h.catalog.passwords[email] = "global-pw"
	return u
}

func (h *harness) session(email string) meal.Session {
	return meal.Session{Account: email, Token: "tok-" + email}
}
