package incentive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"estateos-brokerledger/services/tenant"
)

// EvaluatePayload is the body of the incentive:evaluate task enqueued after
// every event that moves a broker's counters.
type EvaluatePayload struct {
	TenantID  string `json:"tenant_id"`
	BrokerID  string `json:"broker_id"`
	EventType string `json:"event_type"`
	TraceID   string `json:"trace_id,omitempty"`
}

func (s *Service) HandleEvaluateTask(ctx context.Context, t *asynq.Task) error {
	var payload EvaluatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("tenant_id", payload.TenantID),
		zap.String("broker_id", payload.BrokerID),
		zap.String("trace_id", payload.TraceID),
	)
	zapLog.Info("start incentive evaluation task")

	tc := tenant.Context{TenantID: payload.TenantID}
	if err := s.Evaluate(ctx, tc, payload.BrokerID, payload.EventType); err != nil {
		zapLog.Error("incentive evaluation failed", zap.Error(err))
		return err
	}

	zapLog.Info("incentive evaluation completed")
	return nil
}
