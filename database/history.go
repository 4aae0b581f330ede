package database

import (
	"context"
	"time"

	"github.com/lib/pq"

	"plcvisualizer/models"
)

// InsertReadings bulk loads readings with COPY
func (db *DB) InsertReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin readings insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("readings", "parameter_id", "value", "status", "timestamp"))
	if err != nil {
		return wrap("prepare readings copy", err)
	}

	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.ParameterID, r.Value, string(r.Status), r.Timestamp); err != nil {
			stmt.Close()
			return wrap("copy reading", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return wrap("flush readings copy", err)
	}
	if err := stmt.Close(); err != nil {
		return wrap("close readings copy", err)
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit readings", err)
	}
	return nil
}

// GetReadings returns the newest limit readings in [from, to], oldest first
func (db *DB) GetReadings(ctx context.Context, parameterID string, from, to time.Time, limit int) ([]models.Reading, error) {
	query := `
		SELECT parameter_id, value, status, timestamp FROM (
			SELECT parameter_id, value, status, timestamp
			FROM readings
			WHERE parameter_id = $1 AND timestamp >= $2 AND timestamp <= $3
			ORDER BY timestamp DESC
			LIMIT $4
		) recent
		ORDER BY timestamp ASC
	`

	rows, err := db.QueryContext(ctx, query, parameterID, from, to, limit)
	if err != nil {
		return nil, wrap("query readings", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ParameterID, &r.Value, &r.Status, &r.Timestamp); err != nil {
			return nil, wrap("scan reading", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate readings", err)
	}

	return readings, nil
}

// PruneReadings deletes readings older than before
func (db *DB) PruneReadings(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < $1`, before)
	if err != nil {
		return 0, wrap("prune readings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("prune readings", err)
	}
	return n, nil
}
