package sale

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/pkg/repository"
	"estateos-brokerledger/pkg/task"
	"estateos-brokerledger/pkg/taskname"
	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
	"estateos-brokerledger/services/tenant"
)

// AccrualHook receives every sale status transition. The accrual path is
// best-effort relative to the pipeline: a hook error is logged and the
// transition still succeeds.
type AccrualHook interface {
	HandleSaleStatus(ctx context.Context, tc tenant.Context, ev commission.SaleEvent) error
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	hook     AccrualHook
	enqueuer task.Enqueuer

	sales  repository.Repository[Sale]
	visits repository.Repository[Visit]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Hook     AccrualHook   `optional:"true"`
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		hook:     p.Hook,
		enqueuer: p.Enqueuer,
		sales:    repository.ProvideStore[Sale](p.DB),
		visits:   repository.ProvideStore[Visit](p.DB),
	}
}

type CreateSaleInput struct {
	BrokerID  string
	ProjectID string
	UnitRef   string
	Customer  string
	Amount    string
	Currency  string
}

func (s *Service) CreateSale(ctx context.Context, tc tenant.Context, in CreateSaleInput) (*Sale, error) {
	if in.BrokerID == "" {
		return nil, errutil.ValidationFailed("broker_id is required")
	}

	amount, err := decimal.NewFromString(in.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, errutil.ValidationFailed("amount must be a positive decimal number")
	}
	if in.Currency == "" {
		return nil, errutil.ValidationFailed("currency is required")
	}

	sale := &Sale{
		ID:        s.node.Generate().String(),
		TenantID:  tc.TenantID,
		BrokerID:  in.BrokerID,
		ProjectID: in.ProjectID,
		UnitRef:   in.UnitRef,
		Customer:  in.Customer,
		Status:    "new",
		Amount:    amount,
		Currency:  in.Currency,
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, err
	}

	return sale, nil
}

// TransitionStatus persists a status change and fans it out: the accrual
// hook runs inline (failure logged, never blocking), then campaign
// re-evaluation is enqueued for the broker.
func (s *Service) TransitionStatus(ctx context.Context, tc tenant.Context, saleID, newStatus string) (*Sale, error) {
	if newStatus == "" {
		return nil, errutil.ValidationFailed("status is required")
	}

	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", tc.TenantID),
		zap.String("sale_id", saleID),
		zap.String("status", newStatus),
	)

	sale, err := s.sales.FindOne(ctx, &Sale{ID: saleID, TenantID: tc.TenantID})
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, errutil.NotFound("sale not found")
	}

	if sale.Status == newStatus {
		return sale, nil
	}

	err = s.db.WithContext(ctx).Model(&Sale{}).
		Where("id = ? AND tenant_id = ?", sale.ID, tc.TenantID).
		Updates(map[string]any{
			"status":     newStatus,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return nil, err
	}
	sale.Status = newStatus

	if s.hook != nil {
		ev, err := s.buildEvent(ctx, tc, sale)
		if err != nil {
			zapLog.Error("failed to build accrual event", zap.Error(err))
		} else if err := s.hook.HandleSaleStatus(ctx, tc, ev); err != nil {
			zapLog.Error("accrual hook failed", zap.Error(err))
		}
	}

	s.enqueueEvaluate(ctx, tc, sale.BrokerID, newStatus)

	return sale, nil
}

// buildEvent snapshots the sale plus the broker's cumulative won metrics,
// counted after the transition so the current sale is included.
func (s *Service) buildEvent(ctx context.Context, tc tenant.Context, sale *Sale) (commission.SaleEvent, error) {
	wonCount, err := s.WonCount(ctx, tc, sale.BrokerID, "")
	if err != nil {
		return commission.SaleEvent{}, err
	}
	wonVolume, err := s.WonVolume(ctx, tc, sale.BrokerID, "")
	if err != nil {
		return commission.SaleEvent{}, err
	}

	return commission.SaleEvent{
		SaleID:    sale.ID,
		BrokerID:  sale.BrokerID,
		ProjectID: sale.ProjectID,
		Status:    sale.Status,
		Amount:    sale.Amount,
		Currency:  sale.Currency,
		WonCount:  wonCount,
		WonVolume: wonVolume,
	}, nil
}

type RecordVisitInput struct {
	BrokerID  string
	ProjectID string
	SaleID    string
	Notes     string
	VisitedAt *time.Time
}

// RecordVisit logs a site visit and enqueues campaign re-evaluation.
func (s *Service) RecordVisit(ctx context.Context, tc tenant.Context, in RecordVisitInput) (*Visit, error) {
	if in.BrokerID == "" {
		return nil, errutil.ValidationFailed("broker_id is required")
	}

	visitedAt := time.Now()
	if in.VisitedAt != nil {
		visitedAt = *in.VisitedAt
	}

	visit := &Visit{
		ID:        s.node.Generate().String(),
		TenantID:  tc.TenantID,
		BrokerID:  in.BrokerID,
		ProjectID: in.ProjectID,
		SaleID:    in.SaleID,
		Notes:     in.Notes,
		VisitedAt: visitedAt,
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		return nil, err
	}

	s.enqueueEvaluate(ctx, tc, in.BrokerID, "visit")

	return visit, nil
}

func (s *Service) enqueueEvaluate(ctx context.Context, tc tenant.Context, brokerID, eventType string) {
	if s.enqueuer == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	payload, err := json.Marshal(incentive.EvaluatePayload{
		TenantID:  tc.TenantID,
		BrokerID:  brokerID,
		EventType: eventType,
		TraceID:   span.SpanContext().TraceID().String(),
	})
	if err != nil {
		zap.L().Error("failed to marshal evaluate payload", zap.Error(err))
		return
	}

	if _, err := s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.IncentiveEvaluate, payload), asynq.Queue(task.QueueDefault)); err != nil {
		zap.L().Error("failed to enqueue incentive evaluation",
			zap.String("tenant_id", tc.TenantID),
			zap.String("broker_id", brokerID),
			zap.Error(err),
		)
	}
}

// WonCount returns the broker's cumulative number of won sales, optionally
// scoped to one project.
func (s *Service) WonCount(ctx context.Context, tc tenant.Context, brokerID, projectID string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&Sale{}).
		Where("tenant_id = ? AND broker_id = ? AND status = ?", tc.TenantID, brokerID, StatusWon)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// WonVolume returns the broker's cumulative won sale amount. Amounts are
// summed across currencies as configured.
func (s *Service) WonVolume(ctx context.Context, tc tenant.Context, brokerID, projectID string) (decimal.Decimal, error) {
	query := s.db.WithContext(ctx).Model(&Sale{}).
		Where("tenant_id = ? AND broker_id = ? AND status = ?", tc.TenantID, brokerID, StatusWon)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var volume decimal.Decimal
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&volume).Error; err != nil {
		return decimal.Zero, err
	}
	return volume, nil
}

// VisitCount returns the broker's cumulative logged visits, optionally
// scoped to one project.
func (s *Service) VisitCount(ctx context.Context, tc tenant.Context, brokerID, projectID string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&Visit{}).
		Where("tenant_id = ? AND broker_id = ?", tc.TenantID, brokerID)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) ListSales(ctx context.Context, tc tenant.Context, brokerID string) ([]*Sale, error) {
	query := &Sale{TenantID: tc.TenantID}
	if brokerID != "" {
		query.BrokerID = brokerID
	}
	return s.sales.Find(ctx, query)
}
