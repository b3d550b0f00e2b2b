package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

func TestRefresh_ReplacesInsteadOfMerging(t *testing.T) {
	// GIVEN: the remote listed lunch and dinner
	// WHEN: dinner disappears from the remote
	// THEN: it disappears from the snapshot too
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	ctx := context.Background()
	rec := h.auto.Reconciler

	h.catalog.slots[u.Email] = []meal.Slot{
		availableSlot("lunch", "自助午餐", jan10, 11),
		availableSlot("dinner", "自助晚餐", jan10, 18),
	}
	_, err := rec.Refresh(ctx, h.session(u.Email), u, 7)
	require.NoError(t, err)

	h.catalog.slots[u.Email] = h.catalog.slots[u.Email][:1]
	_, err = rec.Refresh(ctx, h.session(u.Email), u, 7)
	require.NoError(t, err)

	snaps, err := h.store.ListEligible(ctx, u.ID, jan10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "lunch", snaps[0].SlotID)
}

func TestRefresh_TransientErrorWritesNothing(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	ctx := context.Background()
	rec := h.auto.Reconciler

	h.catalog.slots[u.Email] = []meal.Slot{availableSlot("lunch", "自助午餐", jan10, 11)}
	_, err := rec.Refresh(ctx, h.session(u.Email), u, 7)
	require.NoError(t, err)

	h.catalog.listErrs = []error{&meal.TransientFetchError{Op: "list", Err: errors.New("503")}}
	h.catalog.slots[u.Email] = nil
	_, err = rec.Refresh(ctx, h.session(u.Email), u, 7)
	assert.True(t, meal.IsTransient(err))

	snaps, err := h.store.ListEligible(ctx, u.ID, jan10)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRefresh_AuthErrorPassesThrough(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	h.catalog.listErrs = []error{&meal.AuthError{Account: u.Email}}

	_, err := h.auto.Reconciler.Refresh(context.Background(), h.session(u.Email), u, 7)
	var ae *meal.AuthError
	assert.ErrorAs(t, err, &ae)
}

func TestRefresh_InvalidSessionFailsBeforeFetching(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	ctx := context.Background()
	h.catalog.slots[u.Email] = []meal.Slot{availableSlot("lunch", "自助午餐", jan10, 11)}
	_, err := h.auto.Reconciler.Refresh(ctx, h.session(u.Email), u, 7)
	require.NoError(t, err)
	calls := h.catalog.listCalls

	for _, s := range []meal.Session{{}, {Account: u.Email}, {Token: "tok"}} {
		_, err := h.auto.Reconciler.Refresh(ctx, s, u, 7)
		assert.True(t, meal.IsAuth(err), "session %+v", s)
	}
	assert.Equal(t, calls, h.catalog.listCalls)

	snaps, err := h.store.ListEligible(ctx, u.ID, jan10)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRefresh_NormalizesAndFilters(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	ctx := context.Background()

	beyond := availableSlot("far", "自助午餐", jan10.AddDate(0, 0, 30), 11)
	dup := availableSlot("lunch", "  自助午餐  ", jan10, 11)
	dup.Status = meal.StatusOrdered
	h.catalog.slots[u.Email] = []meal.Slot{
		availableSlot("dinner", "自助晚餐", jan10, 18),
		availableSlot("lunch", "自助午餐", jan10, 11),
		beyond,
		dup,
	}

	slots, err := h.auto.Reconciler.Refresh(ctx, h.session(u.Email), u, 7)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "lunch", slots[0].ID)
	assert.Equal(t, "自助午餐", slots[0].Label)
	assert.Equal(t, meal.StatusOrdered, slots[0].Status)
	assert.Equal(t, "dinner", slots[1].ID)
}

func TestRefresh_SyncsLedgerWithRemoteState(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	ctx := context.Background()

	// ordered through the Meican app, never seen locally
	external := availableSlot("lunch", "自助午餐", jan10, 11)
	external.Status, external.OrderedDish = meal.StatusOrdered, "自助套餐"
	// recorded locally but cancelled on the remote since
	cancelled := availableSlot("dinner", "自助晚餐", jan10, 18)
	require.NoError(t, h.store.Upsert(ctx, u.ID, jan10, "自助晚餐", meal.OrderOutcome{DishName: "自助套餐", Success: true}))

	h.catalog.slots[u.Email] = []meal.Slot{external, cancelled}
	_, err := h.auto.Reconciler.Refresh(ctx, h.session(u.Email), u, 7)
	require.NoError(t, err)

	rows, err := h.store.ListOutcomes(ctx, u.ID, jan10, jan10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byLabel := map[string]meal.OrderOutcome{}
	for _, r := range rows {
		byLabel[r.SlotLabel] = r
	}

	assert.True(t, byLabel["自助午餐"].Success)
	assert.Equal(t, "自助套餐", byLabel["自助午餐"].DishName)

	assert.False(t, byLabel["自助晚餐"].Success)
	require.NotNil(t, byLabel["自助晚餐"].Error)
	assert.Equal(t, "order no longer present on remote", *byLabel["自助晚餐"].Error)
}
