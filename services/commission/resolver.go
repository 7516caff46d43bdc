package commission

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"estateos-brokerledger/services/tenant"
)

// Resolution is the outcome of resolving a sale against the tenant's
// commission configuration.
type Resolution struct {
	Model    *CommissionModel
	Amount   decimal.Decimal
	Currency string
}

// Resolve selects the most specific applicable commission model for the sale
// and computes the candidate amount. A project-scoped model beats a
// tenant-wide one. Returning (nil, nil) means no model applies; that is a
// configuration absence, not an error.
func (s *Service) Resolve(ctx context.Context, tc tenant.Context, ev SaleEvent) (*Resolution, error) {
	model, err := s.applicableModel(ctx, tc, ev)
	if err != nil {
		return nil, err
	}

	if model == nil {
		zap.L().Info("no commission model matches sale",
			zap.String("tenant_id", tc.TenantID),
			zap.String("sale_id", ev.SaleID),
			zap.String("stage", ev.Status),
		)
		return nil, nil
	}

	switch model.Type {
	case TypeTiered:
		return s.resolveTiered(ctx, model, ev)
	default:
		return resolveFlat(model, ev), nil
	}
}

func (s *Service) applicableModel(ctx context.Context, tc tenant.Context, ev SaleEvent) (*CommissionModel, error) {
	var models []*CommissionModel
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND payable_stage = ? AND is_active = ?", tc.TenantID, ev.Status, true).
		Where("project_id = ? OR project_id = ''", ev.ProjectID).
		Preload("Tiers").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	var tenantWide *CommissionModel
	for _, m := range models {
		if m.ProjectID != "" && m.ProjectID == ev.ProjectID {
			return m, nil
		}
		if m.ProjectID == "" && tenantWide == nil {
			tenantWide = m
		}
	}

	return tenantWide, nil
}

func resolveFlat(model *CommissionModel, ev SaleEvent) *Resolution {
	amount := model.Value
	if model.Basis == BasisRate {
		amount = ev.Amount.Mul(model.Value)
	}

	currency := model.Currency
	if model.Basis == BasisRate {
		currency = ev.Currency
	}

	return &Resolution{
		Model:    model,
		Amount:   amount.Round(2),
		Currency: currency,
	}
}

// resolveTiered applies the rate of the highest tier whose threshold the
// broker's cumulative metric meets or exceeds. The metric already includes
// the current sale; a tie at an exact threshold rounds in the broker's
// favour. The tier rate applies to the current sale only.
func (s *Service) resolveTiered(ctx context.Context, model *CommissionModel, ev SaleEvent) (*Resolution, error) {
	metric := decimal.NewFromInt(ev.WonCount)
	if model.Metric == MetricWonVolume {
		metric = ev.WonVolume
	}

	tiers := make([]CommissionTier, len(model.Tiers))
	copy(tiers, model.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Threshold.LessThan(tiers[j].Threshold)
	})

	var selected *CommissionTier
	for i := range tiers {
		if metric.GreaterThanOrEqual(tiers[i].Threshold) {
			selected = &tiers[i]
		}
	}

	if selected == nil {
		zap.L().Info("broker below lowest commission tier",
			zap.String("model_id", model.ID),
			zap.String("broker_id", ev.BrokerID),
			zap.String("metric", metric.String()),
		)
		return nil, nil
	}

	return &Resolution{
		Model:    model,
		Amount:   ev.Amount.Mul(selected.Rate).Round(2),
		Currency: ev.Currency,
	}, nil
}
