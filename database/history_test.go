package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcvisualizer/models"
)

func TestInsertReadings_UsesCopy(t *testing.T) {
	db, mock := setupMockDB(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	readings := []models.Reading{
		{ParameterID: "p1", Value: 50, Status: models.StatusNormal, Timestamp: ts},
		{ParameterID: "p2", Value: 95, Status: models.StatusAlarm, Timestamp: ts},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "readings"`)
	prep.ExpectExec().WithArgs("p1", 50.0, "normal", ts).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("p2", 95.0, "alarm", ts).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, db.InsertReadings(context.Background(), readings))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReadings_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	require.NoError(t, db.InsertReadings(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReadings(t *testing.T) {
	db, mock := setupMockDB(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	mock.ExpectQuery(`SELECT parameter_id, value, status, timestamp FROM`).
		WithArgs("p1", from, to, 500).
		WillReturnRows(sqlmock.NewRows([]string{"parameter_id", "value", "status", "timestamp"}).
			AddRow("p1", 10.0, "normal", from.Add(time.Minute)).
			AddRow("p1", 11.0, "warning", from.Add(2*time.Minute)))

	readings, err := db.GetReadings(context.Background(), "p1", from, to, 500)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, models.StatusWarning, readings[1].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneReadings(t *testing.T) {
	db, mock := setupMockDB(t)
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM readings WHERE timestamp < \$1`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := db.PruneReadings(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
