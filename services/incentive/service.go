package incentive

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/db/option"
	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/pkg/repository"
	"estateos-brokerledger/services/broker"
	"estateos-brokerledger/services/tenant"
)

// MetricSource exposes the per-broker performance counters campaigns are
// measured against. Counters are cumulative and optionally project-scoped.
type MetricSource interface {
	WonCount(ctx context.Context, tc tenant.Context, brokerID, projectID string) (int64, error)
	WonVolume(ctx context.Context, tc tenant.Context, brokerID, projectID string) (decimal.Decimal, error)
	VisitCount(ctx context.Context, tc tenant.Context, brokerID, projectID string) (int64, error)
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	metrics   MetricSource
	evaluator *Evaluator

	campaigns repository.Repository[IncentiveCampaign]
	earnings  repository.Repository[IncentiveEarning]
	brokers   repository.Repository[broker.Broker]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Metrics MetricSource
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		metrics:   p.Metrics,
		evaluator: NewEvaluator(),
		campaigns: repository.ProvideStore[IncentiveCampaign](p.DB),
		earnings:  repository.ProvideStore[IncentiveEarning](p.DB),
		brokers:   repository.ProvideStore[broker.Broker](p.DB),
	}
}

// Evaluate re-checks every active campaign for one broker after an event
// moved their counters. Awarding is idempotent: a campaign pays a broker at
// most once, so re-delivery of the same event changes nothing.
func (s *Service) Evaluate(ctx context.Context, tc tenant.Context, brokerID, eventType string) error {
	zapLog := zap.L().With(
		zap.String("tenant_id", tc.TenantID),
		zap.String("broker_id", brokerID),
		zap.String("event_type", eventType),
	)

	var campaigns []*IncentiveCampaign
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tc.TenantID, true).
		Order("created_at ASC").
		Find(&campaigns).Error
	if err != nil {
		return err
	}

	bk, err := s.brokers.FindOne(ctx, &broker.Broker{ID: brokerID, TenantID: tc.TenantID})
	if err != nil {
		return err
	}
	level := ""
	if bk != nil {
		level = string(bk.Level)
	}

	now := time.Now()
	for _, campaign := range campaigns {
		if !campaign.AutoTriggered() {
			continue
		}
		if !campaign.InWindow(now) {
			continue
		}

		met, err := s.campaignMet(ctx, tc, campaign, brokerID, eventType, level)
		if err != nil {
			zapLog.Error("failed to evaluate campaign",
				zap.String("campaign_id", campaign.ID),
				zap.Error(err),
			)
			continue
		}
		if !met {
			continue
		}

		earning, err := s.award(ctx, tc, campaign, brokerID)
		if err != nil {
			zapLog.Error("failed to award incentive",
				zap.String("campaign_id", campaign.ID),
				zap.Error(err),
			)
			continue
		}

		if earning != nil {
			zapLog.Info("incentive awarded",
				zap.String("campaign_id", campaign.ID),
				zap.String("earning_id", earning.ID),
				zap.String("amount", earning.Amount.String()),
			)
		}
	}

	return nil
}

func (s *Service) campaignMet(ctx context.Context, tc tenant.Context, campaign *IncentiveCampaign, brokerID, eventType, level string) (bool, error) {
	wonCount, err := s.metrics.WonCount(ctx, tc, brokerID, campaign.ProjectID)
	if err != nil {
		return false, err
	}
	wonVolume, err := s.metrics.WonVolume(ctx, tc, brokerID, campaign.ProjectID)
	if err != nil {
		return false, err
	}
	visitCount, err := s.metrics.VisitCount(ctx, tc, brokerID, campaign.ProjectID)
	if err != nil {
		return false, err
	}

	var targetMet bool
	switch campaign.Type {
	case TypeUnitSales:
		targetMet = decimal.NewFromInt(wonCount).GreaterThanOrEqual(campaign.Target)
	case TypeVolume:
		targetMet = wonVolume.GreaterThanOrEqual(campaign.Target)
	case TypeVisits:
		targetMet = decimal.NewFromInt(visitCount).GreaterThanOrEqual(campaign.Target)
	}
	if !targetMet {
		return false, nil
	}

	// An eligibility expression narrows the award on top of the target, it
	// never replaces it.
	if campaign.Expression != "" {
		return s.evaluator.Evaluate(campaign.Expression, map[string]any{
			"won_count":   wonCount,
			"won_volume":  wonVolume.InexactFloat64(),
			"visit_count": visitCount,
			"event_type":  eventType,
			"level":       level,
		})
	}

	return true, nil
}

// award appends the earned item for a met campaign. One earning per
// (campaign, broker) pair, enforced by a unique index under races.
func (s *Service) award(ctx context.Context, tc tenant.Context, campaign *IncentiveCampaign, brokerID string) (*IncentiveEarning, error) {
	exist, err := s.earnings.FindOne(ctx, &IncentiveEarning{
		TenantID:   tc.TenantID,
		CampaignID: campaign.ID,
		BrokerID:   brokerID,
	})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, nil
	}

	earning := &IncentiveEarning{
		ID:         s.node.Generate().String(),
		TenantID:   tc.TenantID,
		CampaignID: campaign.ID,
		BrokerID:   brokerID,
		Amount:     campaign.BonusValue,
		Currency:   campaign.Currency,
		Status:     StatusEligible,
	}

	if err := s.earnings.Create(ctx, earning); err != nil {
		return nil, err
	}

	return earning, nil
}

// Award grants a special campaign bonus to one broker. Only campaigns of
// type special can be awarded manually.
func (s *Service) Award(ctx context.Context, tc tenant.Context, campaignID, brokerID string) (*IncentiveEarning, error) {
	campaign, err := s.campaigns.FindOne(ctx, &IncentiveCampaign{
		ID:       campaignID,
		TenantID: tc.TenantID,
	})
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, errutil.NotFound("campaign not found")
	}

	if campaign.Type != TypeSpecial {
		return nil, errutil.UnprocessableEntity("only special campaigns can be awarded manually")
	}
	if !campaign.InWindow(time.Now()) {
		return nil, errutil.UnprocessableEntity("campaign is not active")
	}

	earning, err := s.award(ctx, tc, campaign, brokerID)
	if err != nil {
		return nil, err
	}
	if earning == nil {
		return nil, errutil.Conflict("broker already awarded for this campaign")
	}

	return earning, nil
}

type CreateCampaignInput struct {
	Name       string
	Type       CampaignType
	BonusValue string
	Currency   string
	Target     string
	ProjectID  string
	StartDate  *time.Time
	EndDate    *time.Time
	Expression string
}

func (s *Service) CreateCampaign(ctx context.Context, tc tenant.Context, in CreateCampaignInput) (*IncentiveCampaign, error) {
	if in.Name == "" {
		return nil, errutil.ValidationFailed("name is required")
	}
	if in.Type.String() == "" {
		return nil, errutil.ValidationFailed("type must be one of unit_sales, volume, visits, special")
	}

	bonus, err := decimal.NewFromString(in.BonusValue)
	if err != nil || !bonus.IsPositive() {
		return nil, errutil.ValidationFailed("bonus_value must be a positive decimal number")
	}

	target := decimal.Zero
	if in.Target != "" {
		target, err = decimal.NewFromString(in.Target)
		if err != nil {
			return nil, errutil.ValidationFailed("target must be a decimal number")
		}
	}
	if in.Type != TypeSpecial && !target.IsPositive() {
		return nil, errutil.ValidationFailed("target is required for non-special campaigns")
	}

	if in.Expression != "" {
		if _, err := s.evaluator.Evaluate(in.Expression, map[string]any{
			"won_count":   int64(0),
			"won_volume":  float64(0),
			"visit_count": int64(0),
			"event_type":  "",
			"level":       "",
		}); err != nil {
			return nil, errutil.ValidationFailed("expression is not a valid rule", errutil.WithErr(err))
		}
	}

	campaign := &IncentiveCampaign{
		ID:         s.node.Generate().String(),
		TenantID:   tc.TenantID,
		Name:       in.Name,
		Type:       in.Type,
		BonusValue: bonus,
		Currency:   in.Currency,
		Target:     target,
		ProjectID:  in.ProjectID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Expression: in.Expression,
		IsActive:   true,
	}

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}

	return campaign, nil
}

func (s *Service) ListCampaigns(ctx context.Context, tc tenant.Context) ([]*IncentiveCampaign, error) {
	return s.campaigns.Find(ctx, &IncentiveCampaign{TenantID: tc.TenantID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}

func (s *Service) ListEarnings(ctx context.Context, tc tenant.Context, brokerID string) ([]*IncentiveEarning, error) {
	query := &IncentiveEarning{TenantID: tc.TenantID}
	if brokerID != "" {
		query.BrokerID = brokerID
	}

	return s.earnings.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}
