package meal

import (
	"context"
	"time"
)

// Catalog is the remote platform as seen by the core. Implementations
// normalize remote representations before returning; callers never see raw
// payloads.
//
// ListSlots returns *TransientFetchError on network or 5xx failures and
// *AuthError when the session is no longer accepted. PlaceOrder returns
// *OrderError when the platform refuses an order.
type Catalog interface {
	Login(ctx context.Context, email, password string) (Session, error)
	ListSlots(ctx context.Context, s Session, r DateRange) ([]Slot, error)
	ListDishes(ctx context.Context, s Session, slot Slot) ([]Dish, error)
	PlaceOrder(ctx context.Context, s Session, slot Slot, dish Dish, addressID string) (Receipt, error)
}

type SlotSnapshotStore interface {
	// ReplaceHorizon deletes every snapshot of the user dated on or after
	// from and writes one row per slot, atomically.
	ReplaceHorizon(ctx context.Context, userID string, from time.Time, slots []Slot) error
	// ListEligible returns snapshots dated on or after from, ordered by
	// date then target time.
	ListEligible(ctx context.Context, userID string, from time.Time) ([]SlotSnapshot, error)
}

type OrderLedger interface {
	// Upsert writes the outcome for (user, date, label), replacing any
	// earlier row for the same key.
	Upsert(ctx context.Context, userID string, date time.Time, slotLabel string, o OrderOutcome) error
	HasSuccess(ctx context.Context, userID string, date time.Time, slotLabel string) (bool, error)
	// ListOutcomes returns outcomes with from <= date <= to.
	ListOutcomes(ctx context.Context, userID string, from, to time.Time) ([]OrderOutcome, error)
}
