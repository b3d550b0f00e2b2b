package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

type OrderLedger struct{ pool *pgxpool.Pool }

func NewOrderLedger(pool *pgxpool.Pool) *OrderLedger { return &OrderLedger{pool: pool} }

var _ meal.OrderLedger = (*OrderLedger)(nil)

func (l *OrderLedger) Upsert(ctx context.Context, userID string, date time.Time, slotLabel string, o meal.OrderOutcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO order_outcomes (user_id, order_date, slot_label, dish_name, success, error_message, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, order_date, slot_label) DO UPDATE SET
			dish_name=EXCLUDED.dish_name, success=EXCLUDED.success,
			error_message=EXCLUDED.error_message, recorded_at=EXCLUDED.recorded_at`,
		userID, date, slotLabel, o.DishName, o.Success, o.Error, o.RecordedAt,
	)
	return err
}

func (l *OrderLedger) HasSuccess(ctx context.Context, userID string, date time.Time, slotLabel string) (bool, error) {
	var ok bool
	err := l.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM order_outcomes WHERE user_id=$1 AND order_date=$2 AND slot_label=$3 AND success)`,
		userID, date, slotLabel,
	).Scan(&ok)
	return ok, err
}

func (l *OrderLedger) ListOutcomes(ctx context.Context, userID string, from, to time.Time) ([]meal.OrderOutcome, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT user_id, order_date, slot_label, dish_name, success, error_message, recorded_at
		FROM order_outcomes
		WHERE user_id=$1 AND order_date BETWEEN $2 AND $3
		ORDER BY order_date, slot_label`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meal.OrderOutcome
	for rows.Next() {
		var o meal.OrderOutcome
		if err := rows.Scan(&o.UserID, &o.OrderDate, &o.SlotLabel, &o.DishName, &o.Success, &o.Error, &o.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
