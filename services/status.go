package services

import (
	"fmt"
	"math"

	"plcvisualizer/models"
)

// EvaluateStatus classifies a value against the warning and alarm bands.
// Values sitting exactly on a bound are inside it.
func EvaluateStatus(value float64, t models.Thresholds) models.Status {
	if math.IsNaN(value) {
		return models.StatusAlarm
	}
	if value < t.Alarm.Min || value > t.Alarm.Max {
		return models.StatusAlarm
	}
	if value < t.Warning.Min || value > t.Warning.Max {
		return models.StatusWarning
	}
	return models.StatusNormal
}

// ViolatedBound returns the bound that put value outside the normal band.
// ok is false when the value is normal.
func ViolatedBound(value float64, t models.Thresholds) (bound float64, ok bool) {
	switch {
	case value < t.Alarm.Min:
		return t.Alarm.Min, true
	case value > t.Alarm.Max:
		return t.Alarm.Max, true
	case value < t.Warning.Min:
		return t.Warning.Min, true
	case value > t.Warning.Max:
		return t.Warning.Max, true
	}
	return 0, false
}

// ValidateThresholds requires alarm.min <= warning.min <= warning.max <= alarm.max
func ValidateThresholds(t models.Thresholds) error {
	for _, v := range []float64{t.Alarm.Min, t.Alarm.Max, t.Warning.Min, t.Warning.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: thresholds must be finite", models.ErrValidation)
		}
	}
	if t.Warning.Min > t.Warning.Max {
		return fmt.Errorf("%w: warning min %.2f above warning max %.2f", models.ErrValidation, t.Warning.Min, t.Warning.Max)
	}
	if t.Alarm.Min > t.Warning.Min {
		return fmt.Errorf("%w: alarm min %.2f above warning min %.2f", models.ErrValidation, t.Alarm.Min, t.Warning.Min)
	}
	if t.Warning.Max > t.Alarm.Max {
		return fmt.Errorf("%w: warning max %.2f above alarm max %.2f", models.ErrValidation, t.Warning.Max, t.Alarm.Max)
	}
	return nil
}

// ValidateParameter checks the fields an admin edits
func ValidateParameter(p *models.Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return fmt.Errorf("%w: value must be finite", models.ErrValidation)
	}
	return ValidateThresholds(p.Thresholds)
}

// Reevaluate recomputes p.Status and returns the previous status
func Reevaluate(p *models.Parameter) models.Status {
	prev := p.Status
	p.Status = EvaluateStatus(p.Value, p.Thresholds)
	return prev
}
