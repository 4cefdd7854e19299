package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// NotificationIDRepository maps (alarm, slot) pairs to platform notification IDs.
//
// IDs come from an AUTOINCREMENT column, so they are unique across alarms and never
// reused after release. Allocation is idempotent: the same pair always yields the same
// ID until it is released.
type NotificationIDRepository struct {
	db *sql.DB
}

func NewNotificationIDRepository(db *sql.DB) *NotificationIDRepository {
	return &NotificationIDRepository{db: db}
}

// Allocate returns the ID for the pair, creating it on first use.
func (r *NotificationIDRepository) Allocate(ctx context.Context, alarmID string, slot int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notification_ids (alarm_id, slot, created_at) VALUES (?, ?, ?) ON CONFLICT(alarm_id, slot) DO NOTHING`,
		alarmID, slot, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to allocate notification id: %w", err)
	}

	var id int
	err = tx.QueryRowContext(ctx, `SELECT id FROM notification_ids WHERE alarm_id = ? AND slot = ?`, alarmID, slot).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read notification id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit notification id: %w", err)
	}
	return id, nil
}

// Lookup returns the slot → ID mapping currently held by the alarm.
func (r *NotificationIDRepository) Lookup(ctx context.Context, alarmID string) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, id FROM notification_ids WHERE alarm_id = ? ORDER BY slot`, alarmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var slot, id int
		if err := rows.Scan(&slot, &id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		out[slot] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Release drops every mapping for the alarm and returns the released IDs.
func (r *NotificationIDRepository) Release(ctx context.Context, alarmID string) ([]int, error) {
	held, err := r.Lookup(ctx, alarmID)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notification_ids WHERE alarm_id = ?`, alarmID); err != nil {
		return nil, fmt.Errorf("failed to release notification ids: %w", err)
	}

	ids := make([]int, 0, len(held))
	for _, id := range held {
		ids = append(ids, id)
	}
	return ids, nil
}
