package commission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"estateos-brokerledger/services/tenant"
)

func TestResolve_FlatFixedUsesModelCurrency(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Referral fee",
		Basis:        BasisFixed,
		Value:        "2500000",
		Currency:     "IDR",
		PayableStage: "won",
	})
	require.NoError(t, err)

	ev := wonEvent("sale-1", "500000000", 1, "500000000")
	ev.Currency = "USD"

	res, err := svc.Resolve(context.Background(), tc, ev)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "2500000", res.Amount.String())
	require.Equal(t, "IDR", res.Currency)
}

func TestResolve_ProjectScopedBeatsTenantWide(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Tenant wide",
		Value:        "0.02",
		PayableStage: "won",
	})
	require.NoError(t, err)

	scoped, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Launch project",
		Value:        "0.04",
		ProjectID:    "project-1",
		PayableStage: "won",
	})
	require.NoError(t, err)

	ev := wonEvent("sale-1", "1000000", 1, "1000000")
	ev.ProjectID = "project-1"

	res, err := svc.Resolve(context.Background(), tc, ev)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, scoped.ID, res.Model.ID)
	require.Equal(t, "40000", res.Amount.String())

	// a sale outside the project falls back to the tenant-wide model
	ev2 := wonEvent("sale-2", "1000000", 1, "1000000")
	ev2.ProjectID = "project-2"

	res2, err := svc.Resolve(context.Background(), tc, ev2)
	require.NoError(t, err)
	require.NotNil(t, res2)
	require.Equal(t, "20000", res2.Amount.String())
}

func TestResolve_TieredPicksHighestMetTier(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Performance ladder",
		Type:         TypeTiered,
		Metric:       MetricWonCount,
		PayableStage: "won",
		Tiers: []TierInput{
			{Threshold: "1", Rate: "0.01"},
			{Threshold: "5", Rate: "0.02"},
			{Threshold: "10", Rate: "0.03"},
		},
	})
	require.NoError(t, err)

	cases := []struct {
		name     string
		count    int64
		expected string
	}{
		{"first sale lands in lowest tier", 1, "10000"},
		{"below next threshold stays put", 4, "10000"},
		{"exact threshold counts in the broker's favour", 5, "20000"},
		{"top tier", 12, "30000"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Resolve(context.Background(), tc, wonEvent("sale-x", "1000000", tt.count, "0"))
			require.NoError(t, err)
			require.NotNil(t, res)
			require.Equal(t, tt.expected, res.Amount.String())
		})
	}
}

func TestResolve_TieredBelowLowestTier(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Volume ladder",
		Type:         TypeTiered,
		Metric:       MetricWonVolume,
		PayableStage: "won",
		Tiers: []TierInput{
			{Threshold: "1000000000", Rate: "0.02"},
		},
	})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), tc, wonEvent("sale-1", "1000000", 1, "500000000"))
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestResolve_TieredVolumeMetric(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Volume ladder",
		Type:         TypeTiered,
		Metric:       MetricWonVolume,
		PayableStage: "won",
		Tiers: []TierInput{
			{Threshold: "100000000", Rate: "0.01"},
			{Threshold: "500000000", Rate: "0.025"},
		},
	})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), tc, wonEvent("sale-1", "2000000", 3, "600000000"))
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "50000", res.Amount.String())
}

func TestResolve_InactiveModelIgnored(t *testing.T) {
	svc, db := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	model, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Retired",
		Value:        "0.05",
		PayableStage: "won",
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&CommissionModel{}).
		Where("id = ?", model.ID).
		Update("is_active", false).Error)

	res, err := svc.Resolve(context.Background(), tc, wonEvent("sale-1", "1000000", 1, "1000000"))
	require.NoError(t, err)
	require.Nil(t, res)
}
