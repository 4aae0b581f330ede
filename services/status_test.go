package services

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcvisualizer/models"
)

var tempThresholds = models.Thresholds{
	Warning: models.Range{Min: 20, Max: 80},
	Alarm:   models.Range{Min: 10, Max: 90},
}

func TestEvaluateStatus(t *testing.T) {
	cases := []struct {
		value float64
		want  models.Status
	}{
		{50, models.StatusNormal},
		{20, models.StatusNormal},
		{80, models.StatusNormal},
		{19.99, models.StatusWarning},
		{80.01, models.StatusWarning},
		{10, models.StatusWarning},
		{90, models.StatusWarning},
		{9.99, models.StatusAlarm},
		{90.5, models.StatusAlarm},
		{math.NaN(), models.StatusAlarm},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EvaluateStatus(tc.value, tempThresholds), "value %v", tc.value)
	}
}

func TestViolatedBound(t *testing.T) {
	b, ok := ViolatedBound(95, tempThresholds)
	require.True(t, ok)
	assert.Equal(t, 90.0, b)

	b, ok = ViolatedBound(15, tempThresholds)
	require.True(t, ok)
	assert.Equal(t, 20.0, b)

	_, ok = ViolatedBound(50, tempThresholds)
	assert.False(t, ok)
}

func TestValidateThresholds(t *testing.T) {
	require.NoError(t, ValidateThresholds(tempThresholds))

	bad := tempThresholds
	bad.Warning.Min = 85
	err := ValidateThresholds(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))

	bad = tempThresholds
	bad.Alarm.Min = 25
	assert.Error(t, ValidateThresholds(bad))

	bad = tempThresholds
	bad.Alarm.Max = 70
	assert.Error(t, ValidateThresholds(bad))

	bad = tempThresholds
	bad.Alarm.Max = math.Inf(1)
	assert.Error(t, ValidateThresholds(bad))
}

func TestValidateParameter(t *testing.T) {
	p := &models.Parameter{Name: "Temperature", Value: 50, Thresholds: tempThresholds}
	require.NoError(t, ValidateParameter(p))

	p.Name = ""
	assert.ErrorIs(t, ValidateParameter(p), models.ErrValidation)
}

func TestReevaluate(t *testing.T) {
	p := &models.Parameter{Value: 85, Status: models.StatusNormal, Thresholds: tempThresholds}
	prev := Reevaluate(p)
	assert.Equal(t, models.StatusNormal, prev)
	assert.Equal(t, models.StatusWarning, p.Status)
}

func TestSampleParameters_Valid(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range SampleParameters() {
		p := p
		require.NoError(t, ValidateParameter(&p), p.ID)
		assert.Equal(t, models.StatusNormal, p.Status, p.ID)
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, 4)
}
