package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

// ReplaceHorizon deletes the user's snapshots dated on or after from and
// inserts slots in one transaction. A failure leaves the old rows intact.
func (s *Store) ReplaceHorizon(ctx context.Context, userID string, from time.Time, slots []meal.Slot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM slot_snapshots WHERE user_id=? AND order_date>=?`, userID, fmtDate(from)); err != nil {
		return fmt.Errorf("delete horizon: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO slot_snapshots (user_id, slot_id, order_date, label, target_time, status, address_id, last_updated)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT (user_id, slot_id, order_date) DO UPDATE SET
	label=excluded.label, target_time=excluded.target_time, status=excluded.status,
	address_id=excluded.address_id, last_updated=excluded.last_updated`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := fmtTS(time.Now())
	for _, sl := range slots {
		if sl.Date.Before(from) {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			userID, sl.ID, fmtDate(sl.Date), sl.Label, fmtTS(sl.TargetTime), string(sl.Status), sl.AddressID, now,
		); err != nil {
			return fmt.Errorf("insert slot %s: %w", sl.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListEligible(ctx context.Context, userID string, from time.Time) ([]meal.SlotSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, slot_id, order_date, label, target_time, status, address_id, last_updated
FROM slot_snapshots
WHERE user_id=? AND order_date>=?
ORDER BY order_date, target_time, slot_id`, userID, fmtDate(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meal.SlotSnapshot
	for rows.Next() {
		var sn meal.SlotSnapshot
		var date, target, status, updated string
		if err := rows.Scan(&sn.UserID, &sn.SlotID, &date, &sn.Label, &target, &status, &sn.AddressID, &updated); err != nil {
			return nil, err
		}
		if sn.OrderDate, err = parseDate(date); err != nil {
			return nil, err
		}
		if sn.TargetTime, err = parseTS(target); err != nil {
			return nil, err
		}
		if sn.LastUpdated, err = parseTS(updated); err != nil {
			return nil, err
		}
		sn.Status = meal.SlotStatus(status)
		if !sn.Status.Valid() {
			sn.Status = meal.StatusUnknown
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}
