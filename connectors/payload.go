package connectors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plcvisualizer/models"
)

var errEmptyPayload = errors.New("empty payload")

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode accepts a single update object, an array of updates, or either of
// those wrapped as {"type": ..., "data": ...}. Updates without a parameter
// id or name are rejected. A missing timestamp is set to now.
func Decode(payload []byte) ([]models.ValueUpdate, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, errEmptyPayload
	}

	if payload[0] == '{' {
		var env envelope
		if err := json.Unmarshal(payload, &env); err == nil && env.Type != "" && len(env.Data) > 0 {
			return Decode(env.Data)
		}
	}

	var updates []models.ValueUpdate
	if payload[0] == '[' {
		if err := json.Unmarshal(payload, &updates); err != nil {
			return nil, fmt.Errorf("failed to decode update list: %w", err)
		}
	} else {
		var u models.ValueUpdate
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, fmt.Errorf("failed to decode update: %w", err)
		}
		updates = []models.ValueUpdate{u}
	}

	now := time.Now()
	for i := range updates {
		if updates[i].ParameterID == "" && updates[i].Name == "" {
			return nil, fmt.Errorf("update %d has neither parameter_id nor name", i)
		}
		if updates[i].Timestamp.IsZero() {
			updates[i].Timestamp = now
		}
	}
	return updates, nil
}
