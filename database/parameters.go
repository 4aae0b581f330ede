package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"plcvisualizer/models"
)

const parameterColumns = `id, name, description, unit, value, status, warning_min, warning_max, alarm_min, alarm_max, category, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanParameter(row rowScanner) (models.Parameter, error) {
	var p models.Parameter
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Unit, &p.Value, &p.Status,
		&p.Thresholds.Warning.Min, &p.Thresholds.Warning.Max,
		&p.Thresholds.Alarm.Min, &p.Thresholds.Alarm.Max,
		&p.Category, &p.Timestamp)
	return p, err
}

// FetchParameters retrieves all parameters ordered by name
func (db *DB) FetchParameters(ctx context.Context) ([]models.Parameter, error) {
	query := `SELECT ` + parameterColumns + ` FROM parameters ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("query parameters", err)
	}
	defer rows.Close()

	params := []models.Parameter{}
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, wrap("scan parameter", err)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate parameters", err)
	}

	return params, nil
}

// CreateParameter inserts p, generating an id when p has none
func (db *DB) CreateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO parameters (id, name, description, unit, value, status, warning_min, warning_max, alarm_min, alarm_max, category, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + parameterColumns

	created, err := scanParameter(db.QueryRowContext(ctx, query,
		id, p.Name, p.Description, p.Unit, p.Value, p.Status,
		p.Thresholds.Warning.Min, p.Thresholds.Warning.Max,
		p.Thresholds.Alarm.Min, p.Thresholds.Alarm.Max,
		p.Category, p.Timestamp))
	if err != nil {
		return nil, wrap("insert parameter", err)
	}

	return &created, nil
}

// UpdateParameter overwrites every editable column of p
func (db *DB) UpdateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	query := `
		UPDATE parameters
		SET name = $2, description = $3, unit = $4, value = $5, status = $6,
			warning_min = $7, warning_max = $8, alarm_min = $9, alarm_max = $10,
			category = $11, updated_at = $12
		WHERE id = $1
		RETURNING ` + parameterColumns

	updated, err := scanParameter(db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.Unit, p.Value, p.Status,
		p.Thresholds.Warning.Min, p.Thresholds.Warning.Max,
		p.Thresholds.Alarm.Min, p.Thresholds.Alarm.Max,
		p.Category, p.Timestamp))
	if err != nil {
		return nil, wrap("update parameter "+p.ID, err)
	}

	return &updated, nil
}

// DeleteParameter removes a parameter
func (db *DB) DeleteParameter(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM parameters WHERE id = $1`, id)
	if err != nil {
		return wrap("delete parameter "+id, err)
	}
	return requireAffected(res, "delete parameter "+id)
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return wrap(op, sql.ErrNoRows)
	}
	return nil
}
