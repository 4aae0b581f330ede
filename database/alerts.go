package database

import (
	"context"
	"database/sql"

	"plcvisualizer/models"
)

const alertColumns = `id, parameter_id, parameter_name, value, threshold, severity, message, acknowledged, acknowledged_by, acknowledged_at, notified, created_at`

func scanAlert(row rowScanner) (models.Alert, error) {
	var a models.Alert
	var ackBy sql.NullString
	var ackAt sql.NullTime

	err := row.Scan(&a.ID, &a.ParameterID, &a.ParameterName, &a.Value, &a.Threshold,
		&a.Severity, &a.Message, &a.Acknowledged, &ackBy, &ackAt, &a.Notified, &a.CreatedAt)
	if err != nil {
		return a, err
	}

	if ackBy.Valid {
		a.AcknowledgedBy = &ackBy.String
	}
	if ackAt.Valid {
		a.AcknowledgedAt = &ackAt.Time
	}
	return a, nil
}

// InsertAlert inserts a new alert
func (db *DB) InsertAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, parameter_id, parameter_name, value, threshold, severity, message, notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := db.ExecContext(ctx, query, alert.ID, alert.ParameterID, alert.ParameterName,
		alert.Value, alert.Threshold, alert.Severity, alert.Message, alert.Notified, alert.CreatedAt)
	if err != nil {
		return wrap("insert alert", err)
	}

	return nil
}

// ListAlerts retrieves alerts newest first
func (db *DB) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE ($1 = false OR acknowledged = false)
		  AND ($2 = '' OR parameter_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := db.QueryContext(ctx, query, filter.UnacknowledgedOnly, filter.ParameterID, filter.Limit)
	if err != nil {
		return nil, wrap("query alerts", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, wrap("scan alert", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate alerts", err)
	}

	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged. The first acknowledgment wins.
func (db *DB) AcknowledgeAlert(ctx context.Context, id, username string) (*models.Alert, error) {
	query := `
		UPDATE alerts
		SET acknowledged = true,
			acknowledged_by = COALESCE(acknowledged_by, $2),
			acknowledged_at = COALESCE(acknowledged_at, NOW())
		WHERE id = $1
		RETURNING ` + alertColumns

	alert, err := scanAlert(db.QueryRowContext(ctx, query, id, username))
	if err != nil {
		return nil, wrap("acknowledge alert "+id, err)
	}

	return &alert, nil
}

// MarkAlertNotified records that the alert reached at least one dashboard
func (db *DB) MarkAlertNotified(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `UPDATE alerts SET notified = true WHERE id = $1`, id)
	if err != nil {
		return wrap("mark alert notified", err)
	}
	return requireAffected(res, "mark alert notified "+id)
}

// ClearAlerts deletes every alert
func (db *DB) ClearAlerts(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM alerts`)
	if err != nil {
		return 0, wrap("clear alerts", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("clear alerts", err)
	}
	return n, nil
}
