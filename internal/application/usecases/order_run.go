package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
)

const dateLayout = "2006-01-02"

// SlotRef names a slot in a run summary.
type SlotRef struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
}

func (r SlotRef) String() string { return r.Date.Format(dateLayout) + " " + r.Label }

type OrderedSlot struct {
	SlotRef
	Dish string `json:"dish"`
}

type SkippedSlot struct {
	SlotRef
	Reason string `json:"reason,omitempty"`
}

type FailedSlot struct {
	SlotRef
	Error string `json:"error"`
}

// RunSummary lists every slot a run visited, by outcome.
type RunSummary struct {
	Successful     []OrderedSlot `json:"successful"`
	AlreadyOrdered []SlotRef     `json:"already_ordered"`
	Unavailable    []SkippedSlot `json:"unavailable"`
	NoMatch        []SlotRef     `json:"no_matching_dish"`
	Failed         []FailedSlot  `json:"failed"`
}

func (s RunSummary) Total() int {
	return len(s.Successful) + len(s.AlreadyOrdered) + len(s.Unavailable) + len(s.NoMatch) + len(s.Failed)
}

func (s RunSummary) SuccessfulLabels() []string {
	out := make([]string, 0, len(s.Successful))
	for _, o := range s.Successful {
		out = append(out, o.Label)
	}
	return out
}

func (s RunSummary) AlreadyOrderedLabels() []string { return labels(s.AlreadyOrdered) }
func (s RunSummary) NoMatchLabels() []string        { return labels(s.NoMatch) }

func (s RunSummary) UnavailableLabels() []string {
	out := make([]string, 0, len(s.Unavailable))
	for _, u := range s.Unavailable {
		out = append(out, u.Label)
	}
	return out
}

func (s RunSummary) FailedLabels() []string {
	out := make([]string, 0, len(s.Failed))
	for _, f := range s.Failed {
		out = append(out, f.Label)
	}
	return out
}

func labels(refs []SlotRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Label)
	}
	return out
}

// OrderRunner walks a user's snapshot and orders every eligible slot once.
// Slots are handled one at a time; a failure on one slot is recorded and the
// walk moves on. Only an *meal.AuthError stops it early.
type OrderRunner struct {
	Catalog   meal.Catalog
	Snapshots meal.SlotSnapshotStore
	Ledger    meal.OrderLedger
	Policy    meal.Policy
	Location  *time.Location
	Now       func() time.Time
	// AddressID overrides the remote's default address unless the user
	// carries its own.
	AddressID string
	Log       *slog.Logger
}

// Run processes every snapshot slot from today on whose label contains
// keyword. An invalid session fails before anything is read. Ledger rows
// written before an auth failure are kept.
func (e OrderRunner) Run(ctx context.Context, s meal.Session, u user.User, keyword string) (RunSummary, error) {
	var sum RunSummary
	if err := checkSession(s); err != nil {
		return sum, err
	}
	today := meal.DateOf(e.now(), e.Location)

	snaps, err := e.Snapshots.ListEligible(ctx, u.ID, today)
	if err != nil {
		return sum, fmt.Errorf("list eligible slots: %w", err)
	}

	for _, snap := range snaps {
		slot := snap.Slot()
		if !meal.ContainsKeyword(slot.Label, keyword) {
			continue
		}
		if err := e.runSlot(ctx, s, u, slot, keyword, &sum); err != nil {
			return sum, err
		}
	}

	e.log().Info("order run finished", "user", u.Email,
		"successful", len(sum.Successful), "already_ordered", len(sum.AlreadyOrdered),
		"unavailable", len(sum.Unavailable), "no_match", len(sum.NoMatch), "failed", len(sum.Failed))
	return sum, nil
}

// runSlot only returns an error when the whole run must stop.
func (e OrderRunner) runSlot(ctx context.Context, s meal.Session, u user.User, slot meal.Slot, keyword string, sum *RunSummary) error {
	ref := SlotRef{Date: slot.Date, Label: slot.Label}
	log := e.log().With("user", u.Email, "slot", slot.Label, "date", slot.Date.Format(dateLayout))

	var dishes []meal.Dish
	if meal.NeedsDishes(slot) {
		done, err := e.Ledger.HasSuccess(ctx, u.ID, slot.Date, slot.Label)
		if err != nil {
			log.Error("ledger lookup failed", "error", err)
			sum.Failed = append(sum.Failed, FailedSlot{SlotRef: ref, Error: err.Error()})
			return nil
		}
		if done {
			log.Info("slot already ordered in this run")
			sum.AlreadyOrdered = append(sum.AlreadyOrdered, ref)
			return nil
		}

		dishes, err = e.Catalog.ListDishes(ctx, s, slot)
		if err != nil {
			if meal.IsAuth(err) {
				return err
			}
			e.recordFailure(ctx, u, slot, "", err, sum)
			return nil
		}
	}

	d := e.Policy.Decide(slot, dishes, keyword)
	switch d.Kind {
	case meal.DecisionAlreadyOrdered:
		log.Info("slot already ordered")
		sum.AlreadyOrdered = append(sum.AlreadyOrdered, ref)
	case meal.DecisionUnavailable:
		log.Info("slot not available", "reason", d.Reason)
		sum.Unavailable = append(sum.Unavailable, SkippedSlot{SlotRef: ref, Reason: d.Reason})
	case meal.DecisionNoMatchingDish:
		log.Info("no dish matches keyword", "keyword", keyword, "dishes", len(dishes))
		sum.NoMatch = append(sum.NoMatch, ref)
	case meal.DecisionSelectDish:
		receipt, err := e.Catalog.PlaceOrder(ctx, s, slot, d.Dish, e.addressFor(u, slot))
		if err != nil {
			if meal.IsAuth(err) {
				return err
			}
			e.recordFailure(ctx, u, slot, d.Dish.Name, err, sum)
			return nil
		}
		if err := e.Ledger.Upsert(ctx, u.ID, slot.Date, slot.Label, meal.OrderOutcome{
			DishName:   d.Dish.Name,
			Success:    true,
			RecordedAt: e.now(),
		}); err != nil {
			log.Error("order placed but ledger write failed", "dish", d.Dish.Name, "error", err)
		}
		log.Info("order placed", "dish", d.Dish.Name, "order_id", receipt.OrderID)
		sum.Successful = append(sum.Successful, OrderedSlot{SlotRef: ref, Dish: d.Dish.Name})
	}
	return nil
}

func (e OrderRunner) recordFailure(ctx context.Context, u user.User, slot meal.Slot, dish string, cause error, sum *RunSummary) {
	msg := cause.Error()
	e.log().Warn("slot failed", "user", u.Email, "slot", slot.Label, "date", slot.Date.Format(dateLayout), "error", cause)
	if err := e.Ledger.Upsert(ctx, u.ID, slot.Date, slot.Label, meal.OrderOutcome{
		DishName:   dish,
		Success:    false,
		Error:      &msg,
		RecordedAt: e.now(),
	}); err != nil {
		e.log().Error("ledger write failed", "user", u.Email, "slot", slot.Label, "error", err)
	}
	sum.Failed = append(sum.Failed, FailedSlot{SlotRef: SlotRef{Date: slot.Date, Label: slot.Label}, Error: msg})
}

func (e OrderRunner) addressFor(u user.User, slot meal.Slot) string {
	switch {
	case u.AddressID != "":
		return u.AddressID
	case e.AddressID != "":
		return e.AddressID
	}
	return slot.AddressID
}

func (e OrderRunner) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e OrderRunner) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
