package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AdaptationRecord is one committed adaptation.
type AdaptationRecord struct {
	ID                int64     `json:"id"`
	AlarmID           string    `json:"alarmId"`
	PreviousTime      string    `json:"previousTime"`
	NewTime           string    `json:"newTime"`
	AdjustmentMinutes int       `json:"adjustmentMinutes"`
	Confidence        float64   `json:"confidence"`
	Reasons           []string  `json:"reasons"`
	AppliedAt         time.Time `json:"appliedAt"`
}

// AdaptationRepository keeps the adaptation audit trail. The adaptive scheduler reads
// it back to restore its rolling daily budget after a restart.
type AdaptationRepository struct {
	db *sql.DB
}

func NewAdaptationRepository(db *sql.DB) *AdaptationRepository {
	return &AdaptationRepository{db: db}
}

// Record appends a committed adaptation.
func (r *AdaptationRepository) Record(ctx context.Context, rec *AdaptationRecord) error {
	if rec.Reasons == nil {
		rec.Reasons = []string{}
	}
	reasons, err := json.Marshal(rec.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	query := `
		INSERT INTO adaptations (alarm_id, previous_time, new_time, adjustment_minutes, confidence, reasons, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		rec.AlarmID,
		rec.PreviousTime,
		rec.NewTime,
		rec.AdjustmentMinutes,
		rec.Confidence,
		string(reasons),
		rec.AppliedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert adaptation: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// CommitsSince returns the commit times for the alarm strictly after since, oldest first.
// Times are stored in UTC so the text comparison SQLite performs stays chronological.
func (r *AdaptationRepository) CommitsSince(ctx context.Context, alarmID string, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT applied_at FROM adaptations WHERE alarm_id = ? AND applied_at > ? ORDER BY applied_at ASC`,
		alarmID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query adaptations: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan adaptation: %w", err)
		}
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// List returns the most recent adaptations, newest first. An empty alarmID lists all
// alarms; limit <= 0 means no limit.
func (r *AdaptationRepository) List(ctx context.Context, alarmID string, limit int) ([]*AdaptationRecord, error) {
	query := `
		SELECT id, alarm_id, previous_time, new_time, adjustment_minutes, confidence, reasons, applied_at
		FROM adaptations
	`
	args := []any{}
	if alarmID != "" {
		query += " WHERE alarm_id = ?"
		args = append(args, alarmID)
	}
	query += " ORDER BY applied_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adaptations: %w", err)
	}
	defer rows.Close()

	var out []*AdaptationRecord
	for rows.Next() {
		rec, err := scanAdaptation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// DeleteForAlarm removes the history of a deleted alarm.
func (r *AdaptationRepository) DeleteForAlarm(ctx context.Context, alarmID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM adaptations WHERE alarm_id = ?`, alarmID); err != nil {
		return fmt.Errorf("failed to delete adaptations: %w", err)
	}
	return nil
}

func scanAdaptation(rows *sql.Rows) (*AdaptationRecord, error) {
	var (
		rec     AdaptationRecord
		reasons string
	)
	err := rows.Scan(&rec.ID, &rec.AlarmID, &rec.PreviousTime, &rec.NewTime, &rec.AdjustmentMinutes, &rec.Confidence, &reasons, &rec.AppliedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan adaptation: %w", err)
	}
	if err := json.Unmarshal([]byte(reasons), &rec.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}
	return &rec, nil
}
