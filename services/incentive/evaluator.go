package incentive

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Evaluator evaluates campaign eligibility expressions written in CEL.
// The metric map entries are exposed as top-level variables in the program.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate compiles and runs a CEL expression against the provided metric
// map. The expression must return a boolean.
func (e *Evaluator) Evaluate(expression string, metrics map[string]any) (bool, error) {
	if expression == "" {
		return false, fmt.Errorf("expression must not be empty")
	}

	if metrics == nil {
		metrics = map[string]any{}
	}

	envOpts := make([]cel.EnvOption, 0, len(metrics))
	for key := range metrics {
		envOpts = append(envOpts, cel.Variable(key, cel.DynType))
	}

	env, err := cel.NewEnv(envOpts...)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	result, _, err := program.Eval(metrics)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression: %w", err)
	}

	boolean, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return a boolean, got %T", result.Value())
	}

	return boolean, nil
}
