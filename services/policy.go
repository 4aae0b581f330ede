package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"plcvisualizer/models"
)

// CompiledPolicy is a collection policy with its filter expression compiled
type CompiledPolicy struct {
	models.CollectionPolicy
	program *vm.Program
}

func policyEnv(p models.Parameter, previous float64) map[string]interface{} {
	return map[string]interface{}{
		"value":    p.Value,
		"previous": previous,
		"delta":    p.Value - previous,
		"status":   string(p.Status),
		"name":     p.Name,
		"category": p.Category,
	}
}

// CompilePolicy validates the policy and compiles its filter.
// Filters see value, previous, delta, status, name and category.
func CompilePolicy(policy models.CollectionPolicy) (*CompiledPolicy, error) {
	if policy.SampleIntervalMs < 0 {
		return nil, fmt.Errorf("%w: sample_interval_ms must not be negative", models.ErrValidation)
	}
	if policy.RetentionDays < 0 {
		return nil, fmt.Errorf("%w: retention_days must not be negative", models.ErrValidation)
	}

	compiled := &CompiledPolicy{CollectionPolicy: policy}
	if strings.TrimSpace(policy.Filter) == "" {
		return compiled, nil
	}

	program, err := expr.Compile(policy.Filter, expr.Env(policyEnv(models.Parameter{}, 0)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: filter: %v", models.ErrValidation, err)
	}
	compiled.program = program
	return compiled, nil
}

// SampleInterval is the minimum spacing between recorded readings of one parameter
func (c *CompiledPolicy) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// Retention is how long readings are kept; zero keeps them forever
func (c *CompiledPolicy) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Matches runs the filter expression. An empty filter matches everything.
func (c *CompiledPolicy) Matches(p models.Parameter, previous float64) (bool, error) {
	if c.program == nil {
		return true, nil
	}
	out, err := expr.Run(c.program, policyEnv(p, previous))
	if err != nil {
		return false, fmt.Errorf("run filter: %w", err)
	}
	matched, _ := out.(bool)
	return matched, nil
}
