package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcvisualizer/models"
)

func TestCompilePolicy_EmptyFilterMatches(t *testing.T) {
	p, err := CompilePolicy(models.DefaultCollectionPolicy())
	require.NoError(t, err)

	ok, err := p.Matches(models.Parameter{Value: 1}, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, p.SampleInterval())
	assert.Equal(t, 30*24*time.Hour, p.Retention())
}

func TestCompilePolicy_Filter(t *testing.T) {
	policy := models.DefaultCollectionPolicy()
	policy.Filter = `status != "normal" || abs(delta) > 5`
	p, err := CompilePolicy(policy)
	require.NoError(t, err)

	ok, err := p.Matches(models.Parameter{Value: 52, Status: models.StatusNormal}, 50)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Matches(models.Parameter{Value: 58, Status: models.StatusNormal}, 50)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Matches(models.Parameter{Value: 85, Status: models.StatusWarning}, 84)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompilePolicy_CategoryFilter(t *testing.T) {
	policy := models.DefaultCollectionPolicy()
	policy.Filter = `category == "pressure"`
	p, err := CompilePolicy(policy)
	require.NoError(t, err)

	ok, err := p.Matches(models.Parameter{Category: "pressure"}, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompilePolicy_Invalid(t *testing.T) {
	policy := models.DefaultCollectionPolicy()
	policy.Filter = `value +`
	_, err := CompilePolicy(policy)
	assert.ErrorIs(t, err, models.ErrValidation)

	policy.Filter = `value + 1`
	_, err = CompilePolicy(policy)
	assert.ErrorIs(t, err, models.ErrValidation)

	policy.Filter = ""
	policy.RetentionDays = -1
	_, err = CompilePolicy(policy)
	assert.ErrorIs(t, err, models.ErrValidation)
}
