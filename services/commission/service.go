package commission

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/db/option"
	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/pkg/repository"
	"estateos-brokerledger/services/tenant"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	models  repository.Repository[CommissionModel]
	records repository.Repository[CommissionRecord]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		models:  repository.ProvideStore[CommissionModel](p.DB),
		records: repository.ProvideStore[CommissionRecord](p.DB),
	}
}

// HandleSaleStatus is the accrual entry point invoked by the sale workflow on
// every status transition. It resolves the sale against the configured
// commission models and, when one applies, appends an eligible record.
// Accrual failure is surfaced to the caller so it can log and move on; it
// must never block the status transition that triggered it.
func (s *Service) HandleSaleStatus(ctx context.Context, tc tenant.Context, ev SaleEvent) error {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", tc.TenantID),
		zap.String("sale_id", ev.SaleID),
	)

	res, err := s.Resolve(ctx, tc, ev)
	if err != nil {
		zapLog.Error("failed to resolve commission model", zap.Error(err))
		return err
	}

	if res == nil {
		return nil
	}

	record, err := s.Accrue(ctx, tc, ev, res)
	if err != nil {
		zapLog.Error("failed to accrue commission", zap.Error(err))
		return err
	}

	if record != nil {
		zapLog.Info("commission accrued",
			zap.String("record_id", record.ID),
			zap.String("amount", record.Amount.String()),
			zap.String("currency", record.Currency),
		)
	}

	return nil
}

// Accrue appends the earned item for a resolved sale. One record per
// (sale, model) pair; re-delivery of the same status event is a no-op.
func (s *Service) Accrue(ctx context.Context, tc tenant.Context, ev SaleEvent, res *Resolution) (*CommissionRecord, error) {
	exist, err := s.records.FindOne(ctx, &CommissionRecord{
		TenantID: tc.TenantID,
		SaleID:   ev.SaleID,
		ModelID:  res.Model.ID,
	})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, nil
	}

	record := &CommissionRecord{
		ID:       s.node.Generate().String(),
		TenantID: tc.TenantID,
		BrokerID: ev.BrokerID,
		SaleID:   ev.SaleID,
		ModelID:  res.Model.ID,
		Amount:   res.Amount,
		Currency: res.Currency,
		Status:   StatusEligible,
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

type CreateModelInput struct {
	Name         string
	Type         ModelType
	Basis        Basis
	Value        string
	Currency     string
	ProjectID    string
	PayableStage string
	Metric       TierMetric
	Tiers        []TierInput
}

type TierInput struct {
	Threshold string
	Rate      string
}

// CreateModel stores a commission model with its tiers.
func (s *Service) CreateModel(ctx context.Context, tc tenant.Context, in CreateModelInput) (*CommissionModel, error) {
	if in.Name == "" || in.PayableStage == "" {
		return nil, errutil.ValidationFailed("name and payable_stage are required")
	}

	if in.Type == TypeTiered && len(in.Tiers) == 0 {
		return nil, errutil.ValidationFailed("tiered model requires at least one tier")
	}

	value, err := parseDecimal(in.Value)
	if err != nil {
		return nil, errutil.ValidationFailed("value must be a decimal number")
	}

	model := &CommissionModel{
		ID:           s.node.Generate().String(),
		TenantID:     tc.TenantID,
		Name:         in.Name,
		Type:         in.Type,
		Basis:        in.Basis,
		Value:        value,
		Currency:     in.Currency,
		ProjectID:    in.ProjectID,
		PayableStage: in.PayableStage,
		Metric:       in.Metric,
		IsActive:     true,
	}

	if model.Type == "" {
		model.Type = TypeFlat
	}
	if model.Basis == "" {
		model.Basis = BasisRate
	}
	if model.Metric == "" {
		model.Metric = MetricWonCount
	}

	for _, t := range in.Tiers {
		threshold, err := parseDecimal(t.Threshold)
		if err != nil {
			return nil, errutil.ValidationFailed("tier threshold must be a decimal number")
		}
		rate, err := parseDecimal(t.Rate)
		if err != nil {
			return nil, errutil.ValidationFailed("tier rate must be a decimal number")
		}

		model.Tiers = append(model.Tiers, CommissionTier{
			ID:        s.node.Generate().String(),
			ModelID:   model.ID,
			Threshold: threshold,
			Rate:      rate,
		})
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		zap.L().Error("failed to create commission model", zap.Error(err))
		return nil, err
	}

	return model, nil
}

func (s *Service) ListModels(ctx context.Context, tc tenant.Context) ([]*CommissionModel, error) {
	var models []*CommissionModel
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tc.TenantID).
		Preload("Tiers").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return models, nil
}

func (s *Service) ListRecords(ctx context.Context, tc tenant.Context, brokerID string) ([]*CommissionRecord, error) {
	query := &CommissionRecord{TenantID: tc.TenantID}
	if brokerID != "" {
		query.BrokerID = brokerID
	}

	return s.records.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}
