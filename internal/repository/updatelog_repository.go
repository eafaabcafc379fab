package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"macrodash/internal/model"
)

type UpdateLogRepository struct {
	db *sql.DB
}

func NewUpdateLogRepository(db *sql.DB) *UpdateLogRepository {
	return &UpdateLogRepository{db: db}
}

// Append writes one run record. The log is append-only; entries are never
// updated or deleted.
func (r *UpdateLogRepository) Append(entry *model.UpdateLog) error {
	sources := entry.SourcesUpdated
	if sources == nil {
		sources = []string{}
	}

	var errText sql.NullString
	if len(entry.Errors) > 0 {
		b, err := json.Marshal(entry.Errors)
		if err != nil {
			return err
		}
		errText = sql.NullString{String: string(b), Valid: true}
	}

	return r.db.QueryRow(`
		INSERT INTO update_logs(timestamp, trigger_kind, status, sources_updated, errors, duration_seconds)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, entry.Timestamp, entry.TriggerKind, entry.Status, pq.Array(sources), errText, entry.DurationSeconds).Scan(&entry.ID)
}

func (r *UpdateLogRepository) GetLatest() (*model.UpdateLog, error) {
	var entry model.UpdateLog
	var errText sql.NullString

	err := r.db.QueryRow(`
		SELECT id, timestamp, trigger_kind, status, sources_updated, errors, duration_seconds
		FROM update_logs
		ORDER BY timestamp DESC
		LIMIT 1
	`).Scan(&entry.ID, &entry.Timestamp, &entry.TriggerKind, &entry.Status, pq.Array(&entry.SourcesUpdated), &errText, &entry.DurationSeconds)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if errText.Valid {
		if err := json.Unmarshal([]byte(errText.String), &entry.Errors); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}

func (r *UpdateLogRepository) GetRecent(limit int) ([]model.UpdateLog, error) {
	rows, err := r.db.Query(`
		SELECT id, timestamp, trigger_kind, status, sources_updated, errors, duration_seconds
		FROM update_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.UpdateLog
	for rows.Next() {
		var entry model.UpdateLog
		var errText sql.NullString
		err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.TriggerKind, &entry.Status, pq.Array(&entry.SourcesUpdated), &errText, &entry.DurationSeconds)
		if err != nil {
			return nil, err
		}
		if errText.Valid {
			if err := json.Unmarshal([]byte(errText.String), &entry.Errors); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
