package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// AlarmRepository persists alarms in SQLite.
//
// The full alarm is stored as a JSON document next to a few queryable columns, so new
// alarm fields never need a migration. Deletes are soft; a soft-deleted ID can be
// created again, which import relies on when preserving IDs.
type AlarmRepository struct {
	db *sql.DB
}

// NewAlarmRepository creates a new AlarmRepository with the given database connection
func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

// Create inserts a new alarm, generating an ID when none is set.
func (r *AlarmRepository) Create(ctx context.Context, alarm *models.Alarm) error {
	if alarm.ID == "" {
		alarm.ID = shared.GenerateID()
	}
	if err := alarm.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = now
	}
	alarm.UpdatedAt = now

	doc, err := json.Marshal(alarm)
	if err != nil {
		return fmt.Errorf("failed to encode alarm: %w", err)
	}

	query := `
		INSERT INTO alarms (id, user_id, label, time, enabled, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			label = excluded.label,
			time = excluded.time,
			enabled = excluded.enabled,
			document = excluded.document,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = NULL
		WHERE alarms.deleted_at IS NOT NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		alarm.ID,
		alarm.UserID,
		alarm.Label,
		alarm.Time,
		alarm.Enabled,
		string(doc),
		alarm.CreatedAt.UTC(),
		alarm.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alarm: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateAlarm, alarm.ID)
	}
	return nil
}

// Get retrieves an alarm by ID, excluding soft-deleted alarms
func (r *AlarmRepository) Get(ctx context.Context, id string) (*models.Alarm, error) {
	query := `SELECT document FROM alarms WHERE id = ? AND deleted_at IS NULL`

	var doc string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlarmNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alarm: %w", err)
	}
	return decodeAlarm(doc)
}

// LoadAll returns every live alarm ordered by creation time.
func (r *AlarmRepository) LoadAll(ctx context.Context) ([]*models.Alarm, error) {
	return r.List(ctx, map[string]any{})
}

// List retrieves alarms matching the given criteria ("user_id", "enabled"), excluding soft-deleted alarms
func (r *AlarmRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Alarm, error) {
	query := `SELECT document FROM alarms WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if enabled, ok := criteria["enabled"].(bool); ok {
		query += " AND enabled = ?"
		args = append(args, enabled)
	}

	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []*models.Alarm
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		alarm, err := decodeAlarm(doc)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, alarm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return alarms, nil
}

// Update replaces the stored alarm document.
func (r *AlarmRepository) Update(ctx context.Context, alarm *models.Alarm) error {
	if err := alarm.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	alarm.UpdatedAt = time.Now()
	doc, err := json.Marshal(alarm)
	if err != nil {
		return fmt.Errorf("failed to encode alarm: %w", err)
	}

	query := `
		UPDATE alarms
		SET user_id = ?, label = ?, time = ?, enabled = ?, document = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		alarm.UserID,
		alarm.Label,
		alarm.Time,
		alarm.Enabled,
		string(doc),
		alarm.UpdatedAt.UTC(),
		alarm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}
	return expectOne(result, alarm.ID)
}

// Delete soft-deletes an alarm by ID
func (r *AlarmRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE alarms
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
	return expectOne(result, id)
}

func expectOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAlarmNotFound, id)
	}
	return nil
}

func decodeAlarm(doc string) (*models.Alarm, error) {
	var alarm models.Alarm
	if err := json.Unmarshal([]byte(doc), &alarm); err != nil {
		return nil, fmt.Errorf("failed to decode alarm: %w", err)
	}
	return &alarm, nil
}
