package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

func (s *Store) Upsert(ctx context.Context, userID string, date time.Time, slotLabel string, o meal.OrderOutcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO order_outcomes (user_id, order_date, slot_label, dish_name, success, error_message, recorded_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT (user_id, order_date, slot_label) DO UPDATE SET
	dish_name=excluded.dish_name, success=excluded.success,
	error_message=excluded.error_message, recorded_at=excluded.recorded_at`,
		userID, fmtDate(date), slotLabel, o.DishName, o.Success, o.Error, fmtTS(o.RecordedAt),
	)
	return err
}

func (s *Store) HasSuccess(ctx context.Context, userID string, date time.Time, slotLabel string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM order_outcomes WHERE user_id=? AND order_date=? AND slot_label=? AND success=1)`,
		userID, fmtDate(date), slotLabel,
	).Scan(&ok)
	return ok, err
}

func (s *Store) ListOutcomes(ctx context.Context, userID string, from, to time.Time) ([]meal.OrderOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, order_date, slot_label, dish_name, success, error_message, recorded_at
FROM order_outcomes
WHERE user_id=? AND order_date>=? AND order_date<=?
ORDER BY order_date, slot_label`, userID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meal.OrderOutcome
	for rows.Next() {
		var o meal.OrderOutcome
		var date, recorded string
		var msg sql.NullString
		if err := rows.Scan(&o.UserID, &date, &o.SlotLabel, &o.DishName, &o.Success, &msg, &recorded); err != nil {
			return nil, err
		}
		if o.OrderDate, err = parseDate(date); err != nil {
			return nil, err
		}
		if o.RecordedAt, err = parseTS(recorded); err != nil {
			return nil, err
		}
		if msg.Valid {
			m := msg.String
			o.Error = &m
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
