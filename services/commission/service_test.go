package commission

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/services/tenant"
	"estateos-brokerledger/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &CommissionModel{}, &CommissionTier{}, &CommissionRecord{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParams{DB: db, Node: node})
	return svc, db
}

func wonEvent(saleID string, amount string, count int64, volume string) SaleEvent {
	return SaleEvent{
		SaleID:    saleID,
		BrokerID:  "broker-1",
		Status:    "won",
		Amount:    decimal.RequireFromString(amount),
		Currency:  "IDR",
		WonCount:  count,
		WonVolume: decimal.RequireFromString(volume),
	}
}

func TestService_CreateModel(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	model, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Standard",
		Value:        "0.05",
		PayableStage: "won",
	})
	require.NoError(t, err)
	require.Equal(t, TypeFlat, model.Type)
	require.Equal(t, BasisRate, model.Basis)
	require.True(t, model.IsActive)

	models, err := svc.ListModels(context.Background(), tc)
	require.NoError(t, err)
	require.Len(t, models, 1)
}

func TestService_CreateModel_TieredRequiresTiers(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateModel(context.Background(), tenant.Context{TenantID: "tenant-1"}, CreateModelInput{
		Name:         "Tiered",
		Type:         TypeTiered,
		PayableStage: "won",
	})
	require.Error(t, err)
}

func TestService_HandleSaleStatus_AccruesOnce(t *testing.T) {
	svc, db := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Standard",
		Value:        "0.05",
		PayableStage: "won",
	})
	require.NoError(t, err)

	ev := wonEvent("sale-1", "1000000", 1, "1000000")
	require.NoError(t, svc.HandleSaleStatus(context.Background(), tc, ev))

	// redelivery of the same event must not produce a second record
	require.NoError(t, svc.HandleSaleStatus(context.Background(), tc, ev))

	var records []CommissionRecord
	require.NoError(t, db.Find(&records).Error)
	require.Len(t, records, 1)
	require.Equal(t, StatusEligible, records[0].Status)
	require.Nil(t, records[0].PaymentID)
	require.Equal(t, "50000", records[0].Amount.String())
	require.Equal(t, "IDR", records[0].Currency)
}

func TestService_HandleSaleStatus_NoModelIsNoOp(t *testing.T) {
	svc, db := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	require.NoError(t, svc.HandleSaleStatus(context.Background(), tc, wonEvent("sale-1", "1000000", 1, "1000000")))

	var count int64
	require.NoError(t, db.Model(&CommissionRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestService_HandleSaleStatus_StageMismatch(t *testing.T) {
	svc, db := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Standard",
		Value:        "0.05",
		PayableStage: "won",
	})
	require.NoError(t, err)

	ev := wonEvent("sale-1", "1000000", 0, "0")
	ev.Status = "negotiation"
	require.NoError(t, svc.HandleSaleStatus(context.Background(), tc, ev))

	var count int64
	require.NoError(t, db.Model(&CommissionRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestService_ListRecords_FilterByBroker(t *testing.T) {
	svc, _ := newTestService(t)
	tc := tenant.Context{TenantID: "tenant-1"}

	_, err := svc.CreateModel(context.Background(), tc, CreateModelInput{
		Name:         "Standard",
		Value:        "0.05",
		PayableStage: "won",
	})
	require.NoError(t, err)

	evA := wonEvent("sale-1", "1000000", 1, "1000000")
	evB := wonEvent("sale-2", "2000000", 1, "2000000")
	evB.BrokerID = "broker-2"

	require.NoError(t, svc.HandleSaleStatus(context.Background(), tc, evA))
	require.NoError(t, svc.HandleSaleStatus(context.Background(), tc, evB))

	records, err := svc.ListRecords(context.Background(), tc, "broker-2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "broker-2", records[0].BrokerID)

	all, err := svc.ListRecords(context.Background(), tc, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}
