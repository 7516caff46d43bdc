package incentive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := NewEvaluator()

	result, err := evaluator.Evaluate("won_count >= 3 && level == 'gold'", map[string]any{
		"won_count": int64(5),
		"level":     "gold",
	})
	require.NoError(t, err)
	require.True(t, result)

	result, err = evaluator.Evaluate("won_count >= 3 && level == 'gold'", map[string]any{
		"won_count": int64(5),
		"level":     "bronze",
	})
	require.NoError(t, err)
	require.False(t, result)
}

func TestEvaluator_Evaluate_InvalidExpression(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.Evaluate("won_count >>> 3", map[string]any{"won_count": int64(1)})
	require.Error(t, err)
}

func TestEvaluator_Evaluate_NonBooleanResult(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.Evaluate("won_count + 1", map[string]any{"won_count": int64(1)})
	require.Error(t, err)
}

func TestEvaluator_Evaluate_EmptyExpression(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.Evaluate("", nil)
	require.Error(t, err)
}
