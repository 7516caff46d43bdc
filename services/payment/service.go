package payment

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/db/option"
	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/pkg/repository"
	"estateos-brokerledger/pkg/sequence"
	"estateos-brokerledger/services/broker"
	"estateos-brokerledger/services/tenant"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	seq  sequence.Generator

	payments repository.Repository[Payment]
	brokers  repository.Repository[broker.Broker]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Seq  sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		seq:      p.Seq,
		payments: repository.ProvideStore[Payment](p.DB),
		brokers:  repository.ProvideStore[broker.Broker](p.DB),
	}
}

type RecordPaymentInput struct {
	BrokerID       string
	Amount         string
	Currency       string
	Method         string
	Reference      string
	Notes          string
	ImportID       string
	IdempotencyKey string

	// ItemIDs names the earned items this payment settles. When present the
	// allocation is explicit: exactly these items flip to paid, regardless
	// of how their amounts compare to the payment. When empty the payment
	// settles FIFO against the broker's outstanding commission records.
	ItemIDs []string
}

// RecordPayment writes one payment entry and immediately settles it against
// the broker's outstanding earned items. When an idempotency key is supplied
// and a payment already carries it, the existing payment is returned and no
// new entry or allocation happens.
func (s *Service) RecordPayment(ctx context.Context, tc tenant.Context, in RecordPaymentInput) (*Payment, *AllocationResult, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", tc.TenantID),
		zap.String("broker_id", in.BrokerID),
	)

	amount, err := decimal.NewFromString(in.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, nil, errutil.ValidationFailed("amount must be a positive decimal number")
	}
	if in.Currency == "" {
		return nil, nil, errutil.ValidationFailed("currency is required")
	}

	bk, err := s.brokers.FindOne(ctx, &broker.Broker{ID: in.BrokerID, TenantID: tc.TenantID})
	if err != nil {
		return nil, nil, err
	}
	if bk == nil {
		return nil, nil, errutil.NotFound("broker not found")
	}

	if in.IdempotencyKey != "" {
		exist, err := s.payments.FindOne(ctx, &Payment{
			TenantID:       tc.TenantID,
			IdempotencyKey: &in.IdempotencyKey,
		})
		if err != nil {
			return nil, nil, err
		}
		if exist != nil {
			zapLog.Info("payment already recorded for idempotency key",
				zap.String("payment_id", exist.ID),
			)
			return exist, nil, nil
		}
	}

	// selected items are resolved before any write so a bad id fails the
	// whole call instead of leaving a payment with a half-done allocation
	var explicit []EarnedItem
	if len(in.ItemIDs) > 0 {
		explicit, err = s.resolveItems(ctx, tc, in.BrokerID, in.ItemIDs)
		if err != nil {
			return nil, nil, err
		}
	}

	p := &Payment{
		ID:        s.node.Generate().String(),
		TenantID:  tc.TenantID,
		BrokerID:  in.BrokerID,
		Amount:    amount,
		Currency:  in.Currency,
		Method:    in.Method,
		Reference: in.Reference,
		Notes:     in.Notes,
		ImportID:  in.ImportID,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		p.IdempotencyKey = &key
	}

	p.Code, err = s.nextCode(ctx, tc)
	if err != nil {
		return nil, nil, err
	}

	if err := s.payments.Create(ctx, p); err != nil {
		return nil, nil, err
	}

	var result *AllocationResult
	if len(explicit) > 0 {
		result, err = s.allocateExplicit(ctx, tc, p, explicit)
	} else {
		result, err = s.allocate(ctx, tc, p)
	}
	if err != nil {
		return nil, nil, err
	}

	zapLog.Info("payment recorded",
		zap.String("payment_id", p.ID),
		zap.String("code", p.Code),
		zap.String("amount", p.Amount.String()),
		zap.String("currency", p.Currency),
		zap.Int("items_settled", len(result.Allocated)),
		zap.String("remainder", result.Remainder.String()),
	)

	return p, result, nil
}

func (s *Service) nextCode(ctx context.Context, tc tenant.Context) (string, error) {
	if s.seq != nil {
		return s.seq.NextPaymentCode(ctx, tc.TenantID)
	}
	return s.node.Generate().String(), nil
}

func (s *Service) ListPayments(ctx context.Context, tc tenant.Context, brokerID string) ([]*Payment, error) {
	query := &Payment{TenantID: tc.TenantID}
	if brokerID != "" {
		query.BrokerID = brokerID
	}

	return s.payments.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}
