package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
)

const msgCancelledRemotely = "order no longer present on remote"

var errInvalidSession = errors.New("invalid session")

// checkSession rejects a session that cannot authenticate any remote call.
func checkSession(s meal.Session) error {
	if !s.Valid() {
		return &meal.AuthError{Account: s.Account, Err: errInvalidSession}
	}
	return nil
}

// Reconciler refreshes a user's local slot snapshot from the remote catalog.
type Reconciler struct {
	Catalog   meal.Catalog
	Snapshots meal.SlotSnapshotStore
	Ledger    meal.OrderLedger
	Location  *time.Location
	Now       func() time.Time
	Log       *slog.Logger
}

// Refresh replaces the user's snapshot for [today, today+horizonDays] with
// what the remote reports. Auth and transient fetch errors are returned as
// is and nothing is written. Slots the remote no longer lists disappear from
// the snapshot.
func (r Reconciler) Refresh(ctx context.Context, s meal.Session, u user.User, horizonDays int) ([]meal.Slot, error) {
	if err := checkSession(s); err != nil {
		return nil, err
	}
	today := meal.DateOf(r.now(), r.Location)
	rng := meal.Horizon(today, horizonDays)

	raw, err := r.Catalog.ListSlots(ctx, s, rng)
	if err != nil {
		if meal.IsAuth(err) || meal.IsTransient(err) {
			return nil, err
		}
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := r.normalize(u, rng, raw)
	if err := r.Snapshots.ReplaceHorizon(ctx, u.ID, today, slots); err != nil {
		return nil, fmt.Errorf("replace horizon: %w", err)
	}
	if err := r.syncLedger(ctx, u, slots); err != nil {
		return slots, fmt.Errorf("sync ledger: %w", err)
	}

	r.log().Info("snapshot refreshed",
		"user", u.Email, "from", rng.From.Format(dateLayout), "to", rng.To.Format(dateLayout), "slots", len(slots))
	return slots, nil
}

// normalize drops slots outside the horizon, keeps one slot per
// (id, date) and orders the result by date then target time.
func (r Reconciler) normalize(u user.User, rng meal.DateRange, raw []meal.Slot) []meal.Slot {
	type key struct {
		id   string
		date time.Time
	}
	seen := make(map[key]int, len(raw))
	out := make([]meal.Slot, 0, len(raw))
	for _, sl := range raw {
		if sl.Date.IsZero() {
			sl.Date = meal.DateOf(sl.TargetTime, r.Location)
		}
		if !rng.Contains(sl.Date) {
			continue
		}
		sl.Label = meal.NormalizeText(sl.Label)
		if !sl.Status.Valid() {
			sl.Status = meal.StatusUnknown
		}
		if sl.Status == meal.StatusUnknown {
			r.log().Warn("slot status not recognized, treating as ineligible",
				"user", u.Email, "error", &meal.UnknownStatusError{SlotID: sl.ID, Raw: sl.RawStatus})
		}
		k := key{sl.ID, sl.Date}
		if i, ok := seen[k]; ok {
			out[i] = sl
			continue
		}
		seen[k] = len(out)
		out = append(out, sl)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TargetTime.Before(out[j].TargetTime)
	})
	return out
}

// syncLedger aligns success rows with the remote's order state: orders made
// through another channel are recorded, orders the remote dropped are
// marked as no longer successful.
func (r Reconciler) syncLedger(ctx context.Context, u user.User, slots []meal.Slot) error {
	if r.Ledger == nil {
		return nil
	}
	for _, sl := range slots {
		switch sl.Status {
		case meal.StatusOrdered, meal.StatusAvailable:
		default:
			continue
		}
		ok, err := r.Ledger.HasSuccess(ctx, u.ID, sl.Date, sl.Label)
		if err != nil {
			return err
		}
		switch {
		case sl.Status == meal.StatusOrdered && !ok:
			err = r.Ledger.Upsert(ctx, u.ID, sl.Date, sl.Label, meal.OrderOutcome{
				DishName:   sl.OrderedDish,
				Success:    true,
				RecordedAt: r.now(),
			})
		case sl.Status == meal.StatusAvailable && ok:
			msg := msgCancelledRemotely
			err = r.Ledger.Upsert(ctx, u.ID, sl.Date, sl.Label, meal.OrderOutcome{
				Success:    false,
				Error:      &msg,
				RecordedAt: r.now(),
			})
			r.log().Info("ledger success cleared", "user", u.Email, "slot", sl.Label, "date", sl.Date.Format(dateLayout))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Reconciler) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
