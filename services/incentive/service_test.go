package incentive

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/services/broker"
	"estateos-brokerledger/services/tenant"
	"estateos-brokerledger/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubMetrics struct {
	wonCount   int64
	wonVolume  decimal.Decimal
	visitCount int64
}

func (m *stubMetrics) WonCount(ctx context.Context, tc tenant.Context, brokerID, projectID string) (int64, error) {
	return m.wonCount, nil
}

func (m *stubMetrics) WonVolume(ctx context.Context, tc tenant.Context, brokerID, projectID string) (decimal.Decimal, error) {
	return m.wonVolume, nil
}

func (m *stubMetrics) VisitCount(ctx context.Context, tc tenant.Context, brokerID, projectID string) (int64, error) {
	return m.visitCount, nil
}

func newTestService(t *testing.T, metrics *stubMetrics) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &IncentiveCampaign{}, &IncentiveEarning{}, &broker.Broker{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	if metrics == nil {
		metrics = &stubMetrics{wonVolume: decimal.Zero}
	}

	svc := NewService(ServiceParams{DB: db, Node: node, Metrics: metrics})
	return svc, db
}

func seedBroker(t *testing.T, db *gorm.DB, id, tenantID string, level broker.Level) {
	t.Helper()
	require.NoError(t, db.Create(&broker.Broker{
		ID:       id,
		TenantID: tenantID,
		Name:     "Test Broker",
		Email:    id + "@example.com",
		Level:    level,
		IsActive: true,
	}).Error)
}

func TestService_Evaluate_AwardsOnTargetMet(t *testing.T) {
	metrics := &stubMetrics{wonCount: 3, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Q3 sprint",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Target:     "3",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	require.Equal(t, StatusEligible, earnings[0].Status)
	require.Equal(t, "5000000", earnings[0].Amount.String())
	require.Nil(t, earnings[0].PaymentID)
}

func TestService_Evaluate_BelowTargetNoAward(t *testing.T) {
	metrics := &stubMetrics{wonCount: 2, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Q3 sprint",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Target:     "3",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Empty(t, earnings)
}

func TestService_Evaluate_AwardsAtMostOnce(t *testing.T) {
	metrics := &stubMetrics{wonCount: 5, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Q3 sprint",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Target:     "3",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))
	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
}

func TestService_Evaluate_VisitCampaign(t *testing.T) {
	metrics := &stubMetrics{visitCount: 10, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Site visit drive",
		Type:       TypeVisits,
		BonusValue: "1000000",
		Currency:   "IDR",
		Target:     "10",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "visit"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
}

func TestService_Evaluate_ExpressionCampaign(t *testing.T) {
	metrics := &stubMetrics{wonCount: 4, wonVolume: decimal.RequireFromString("750000000")}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelGold)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Gold closer",
		Type:       TypeUnitSales,
		BonusValue: "10000000",
		Currency:   "IDR",
		Target:     "1",
		Expression: "won_count >= 3 && level == 'gold'",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
}

func TestService_Evaluate_ExpressionDoesNotReplaceTarget(t *testing.T) {
	metrics := &stubMetrics{wonCount: 2, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	// the expression alone is satisfied, but the target of 10 is not
	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Top seller",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Target:     "10",
		Expression: "won_count >= 1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Empty(t, earnings)
}

func TestService_Evaluate_SpecialWithExpressionNeverAuto(t *testing.T) {
	metrics := &stubMetrics{wonCount: 100, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Founders bonus",
		Type:       TypeSpecial,
		BonusValue: "25000000",
		Currency:   "IDR",
		Expression: "won_count >= 1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Empty(t, earnings)
}

func TestService_Evaluate_SpecialCampaignNeverAuto(t *testing.T) {
	metrics := &stubMetrics{wonCount: 100, wonVolume: decimal.Zero}
	svc, db := newTestService(t, metrics)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Founders bonus",
		Type:       TypeSpecial,
		BonusValue: "25000000",
		Currency:   "IDR",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(context.Background(), tc, "broker-1", "won"))

	earnings, err := svc.ListEarnings(context.Background(), tc, "broker-1")
	require.NoError(t, err)
	require.Empty(t, earnings)
}

func TestService_Award_SpecialCampaign(t *testing.T) {
	svc, db := newTestService(t, nil)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	campaign, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Founders bonus",
		Type:       TypeSpecial,
		BonusValue: "25000000",
		Currency:   "IDR",
	})
	require.NoError(t, err)

	earning, err := svc.Award(context.Background(), tc, campaign.ID, "broker-1")
	require.NoError(t, err)
	require.Equal(t, "25000000", earning.Amount.String())

	// a second manual award for the same broker is rejected
	_, err = svc.Award(context.Background(), tc, campaign.ID, "broker-1")
	require.Error(t, err)
}

func TestService_Award_NonSpecialRejected(t *testing.T) {
	svc, db := newTestService(t, nil)
	tc := tenant.Context{TenantID: "tenant-1"}
	seedBroker(t, db, "broker-1", tc.TenantID, broker.LevelBronze)

	campaign, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Q3 sprint",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Target:     "3",
	})
	require.NoError(t, err)

	_, err = svc.Award(context.Background(), tc, campaign.ID, "broker-1")
	require.Error(t, err)
}

func TestService_CreateCampaign_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Broken",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
	})
	require.Error(t, err, "non-special campaign without target")

	// an expression does not substitute for the target
	_, err = svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Broken",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Expression: "won_count >= 1",
	})
	require.Error(t, err, "non-special campaign with expression but no target")

	_, err = svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Broken",
		Type:       TypeUnitSales,
		BonusValue: "-1",
		Currency:   "IDR",
		Target:     "3",
	})
	require.Error(t, err, "negative bonus")

	_, err = svc.CreateCampaign(context.Background(), tc, CreateCampaignInput{
		Name:       "Broken",
		Type:       TypeUnitSales,
		BonusValue: "5000000",
		Currency:   "IDR",
		Target:     "3",
		Expression: "won_count >>> 1",
	})
	require.Error(t, err, "invalid expression")
}
