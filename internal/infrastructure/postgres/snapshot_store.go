package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

type SnapshotStore struct{ pool *pgxpool.Pool }

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore { return &SnapshotStore{pool: pool} }

var _ meal.SlotSnapshotStore = (*SnapshotStore)(nil)

// ReplaceHorizon runs the delete and the inserts in one transaction, so a
// reader sees either the previous horizon or the new one.
func (s *SnapshotStore) ReplaceHorizon(ctx context.Context, userID string, from time.Time, slots []meal.Slot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM slot_snapshots WHERE user_id=$1 AND order_date>=$2`, userID, from); err != nil {
			return fmt.Errorf("delete horizon: %w", err)
		}
		batch := &pgx.Batch{}
		for _, sl := range slots {
			if sl.Date.Before(from) {
				continue
			}
			batch.Queue(`
				INSERT INTO slot_snapshots (user_id, slot_id, order_date, label, target_time, status, address_id, last_updated)
				VALUES ($1,$2,$3,$4,$5,$6,$7,now())
				ON CONFLICT (user_id, slot_id, order_date) DO UPDATE SET
					label=EXCLUDED.label, target_time=EXCLUDED.target_time, status=EXCLUDED.status,
					address_id=EXCLUDED.address_id, last_updated=EXCLUDED.last_updated`,
				userID, sl.ID, sl.Date, sl.Label, sl.TargetTime, string(sl.Status), sl.AddressID)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *SnapshotStore) ListEligible(ctx context.Context, userID string, from time.Time) ([]meal.SlotSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, slot_id, order_date, label, target_time, status, address_id, last_updated
		FROM slot_snapshots
		WHERE user_id=$1 AND order_date>=$2
		ORDER BY order_date, target_time, slot_id`, userID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meal.SlotSnapshot
	for rows.Next() {
		var sn meal.SlotSnapshot
		var status string
		if err := rows.Scan(&sn.UserID, &sn.SlotID, &sn.OrderDate, &sn.Label, &sn.TargetTime, &status, &sn.AddressID, &sn.LastUpdated); err != nil {
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
