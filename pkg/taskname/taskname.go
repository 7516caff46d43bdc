// Package taskname holds the asynq task type names shared between producers
// and consumers so the two sides never drift.
package taskname

const (
	IncentiveEvaluate = "incentive:evaluate"
)
