package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"plcvisualizer/models"
)

const policyKey = "collection_policy"

// GetCollectionPolicy returns the stored policy or the default when none was saved
func (db *DB) GetCollectionPolicy(ctx context.Context) (*models.CollectionPolicy, error) {
	var raw []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, policyKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		policy := models.DefaultCollectionPolicy()
		return &policy, nil
	}
	if err != nil {
		return nil, wrap("get collection policy", err)
	}

	var policy models.CollectionPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection policy: %w", err)
	}
	return &policy, nil
}

// SaveCollectionPolicy upserts the policy
func (db *DB) SaveCollectionPolicy(ctx context.Context, policy models.CollectionPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal collection policy: %w", err)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := db.ExecContext(ctx, query, policyKey, raw); err != nil {
		return wrap("save collection policy", err)
	}
	return nil
}
