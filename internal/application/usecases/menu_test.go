package usecases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/meal"
)

func TestNextMenu_ListsEarliestAvailableSlot(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	ordered := availableSlot("s1", "自助午餐", jan10, 11)
	ordered.Status, ordered.RawStatus = meal.StatusOrdered, "ORDER"
	h.catalog.slots[u.Email] = []meal.Slot{
		availableSlot("s3", "自助午餐", jan11, 11),
		ordered,
		availableSlot("s2", "自助晚餐", jan10, 18),
	}
	h.catalog.dishes["s2"] = []meal.Dish{{ID: "d1", Name: "自助套餐"}, {ID: "d2", Name: "牛肉面"}}

	menu, err := h.auto.NextMenu(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "s2", menu.Slot.ID)
	assert.Len(t, menu.Dishes, 2)
	assert.Equal(t, []string{"s2"}, h.catalog.dishCalls)
	assert.Zero(t, h.catalog.orderCount())
}

func TestNextMenu_NoOpenSlot(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "u1", "a@example.com")
	closed := availableSlot("s1", "自助午餐", jan10, 11)
	closed.Status, closed.RawStatus = meal.StatusUnavailable, "CLOSED"
	h.catalog.slots[u.Email] = []meal.Slot{closed}

	_, err := h.auto.NextMenu(context.Background(), u)
	assert.ErrorIs(t, err, usecases.ErrNoOpenSlot)
	assert.Empty(t, h.catalog.dishCalls)
}
