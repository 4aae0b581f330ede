package services

import (
	"time"

	"plcvisualizer/models"
)

// SampleParameters returns the demo line used by the seed command and the
// sensor simulator. IDs are stable so both sides agree without a lookup.
func SampleParameters() []models.Parameter {
	now := time.Now().UTC()
	params := []models.Parameter{
		{
			ID:          "conveyor-speed",
			Name:        "Conveyor speed",
			Description: "Main belt speed",
			Unit:        "m/s",
			Value:       1.5,
			Category:    "motion",
			Thresholds: models.Thresholds{
				Warning: models.Range{Min: 0.8, Max: 2.5},
				Alarm:   models.Range{Min: 0.5, Max: 3.0},
			},
		},
		{
			ID:          "oven-temperature",
			Name:        "Oven temperature",
			Description: "Curing oven zone 1",
			Unit:        "°C",
			Value:       72,
			Category:    "thermal",
			Thresholds: models.Thresholds{
				Warning: models.Range{Min: 40, Max: 80},
				Alarm:   models.Range{Min: 20, Max: 90},
			},
		},
		{
			ID:          "robot-arm-angle",
			Name:        "Robot arm angle",
			Description: "Pick and place joint 2",
			Unit:        "°",
			Value:       90,
			Category:    "motion",
			Thresholds: models.Thresholds{
				Warning: models.Range{Min: 15, Max: 165},
				Alarm:   models.Range{Min: 0, Max: 180},
			},
		},
		{
			ID:          "line-pressure",
			Name:        "Line pressure",
			Description: "Pneumatic supply",
			Unit:        "bar",
			Value:       6.2,
			Category:    "pneumatic",
			Thresholds: models.Thresholds{
				Warning: models.Range{Min: 5.5, Max: 7.5},
				Alarm:   models.Range{Min: 4.5, Max: 8.5},
			},
		},
	}
	for i := range params {
		params[i].Timestamp = now
		Reevaluate(&params[i])
	}
	return params
}
