package usecases

import (
	"context"
	"errors"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
)

var ErrNoOpenSlot = errors.New("no available slot in horizon")

// Menu is the dish list of one slot.
type Menu struct {
	Slot   meal.Slot
	Dishes []meal.Dish
}

// NextMenu refreshes the user's snapshot and lists the dishes of the
// earliest Available slot.
func (a AutoOrder) NextMenu(ctx context.Context, u user.User) (Menu, error) {
	sess, err := a.login(ctx, u)
	if err != nil {
		return Menu{}, err
	}
	slots, err := a.refresh(ctx, sess, u)
	if err != nil {
		return Menu{}, err
	}
	for _, sl := range slots {
		if sl.Status != meal.StatusAvailable {
			continue
		}
		dishes, err := a.Catalog.ListDishes(ctx, sess, sl)
		if err != nil {
			return Menu{Slot: sl}, err
		}
		return Menu{Slot: sl, Dishes: dishes}, nil
	}
	return Menu{}, ErrNoOpenSlot
}
