package sale

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/taskname"
	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
	"estateos-brokerledger/services/tenant"
	"estateos-brokerledger/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testTenant = tenant.Context{TenantID: "tenant-1"}

type stubHook struct {
	events []commission.SaleEvent
	err    error
}

func (h *stubHook) HandleSaleStatus(ctx context.Context, tc tenant.Context, ev commission.SaleEvent) error {
	h.events = append(h.events, ev)
	return h.err
}

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (e *stubEnqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newTestService(t *testing.T, hook AccrualHook, enq *stubEnqueuer) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Sale{}, &Visit{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	params := ServiceParams{DB: db, Node: node, Hook: hook}
	if enq != nil {
		params.Enqueuer = enq
	}

	return NewService(params), db
}

func createSale(t *testing.T, svc *Service, brokerID, projectID, amount string) *Sale {
	t.Helper()
	sale, err := svc.CreateSale(context.Background(), testTenant, CreateSaleInput{
		BrokerID:  brokerID,
		ProjectID: projectID,
		Amount:    amount,
		Currency:  "IDR",
	})
	require.NoError(t, err)
	return sale
}

func TestTransitionStatus_PersistsAndNotifiesHook(t *testing.T) {
	hook := &stubHook{}
	enq := &stubEnqueuer{}
	svc, db := newTestService(t, hook, enq)

	sale := createSale(t, svc, "broker-1", "project-1", "1000000")

	updated, err := svc.TransitionStatus(context.Background(), testTenant, sale.ID, StatusWon)
	require.NoError(t, err)
	require.Equal(t, StatusWon, updated.Status)

	var stored Sale
	require.NoError(t, db.First(&stored, "id = ?", sale.ID).Error)
	require.Equal(t, StatusWon, stored.Status)

	require.Len(t, hook.events, 1)
	ev := hook.events[0]
	require.Equal(t, sale.ID, ev.SaleID)
	require.Equal(t, StatusWon, ev.Status)
	require.EqualValues(t, 1, ev.WonCount, "metric includes the current sale")
	require.Equal(t, "1000000", ev.WonVolume.String())

	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.IncentiveEvaluate, enq.tasks[0].Type())

	var payload incentive.EvaluatePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, "broker-1", payload.BrokerID)
	require.Equal(t, StatusWon, payload.EventType)
}

func TestTransitionStatus_HookFailureDoesNotBlock(t *testing.T) {
	hook := &stubHook{err: errors.New("accrual store down")}
	svc, db := newTestService(t, hook, nil)

	sale := createSale(t, svc, "broker-1", "", "1000000")

	updated, err := svc.TransitionStatus(context.Background(), testTenant, sale.ID, StatusWon)
	require.NoError(t, err, "accrual failure must not fail the transition")
	require.Equal(t, StatusWon, updated.Status)

	var stored Sale
	require.NoError(t, db.First(&stored, "id = ?", sale.ID).Error)
	require.Equal(t, StatusWon, stored.Status)
}

func TestTransitionStatus_SameStatusIsNoOp(t *testing.T) {
	hook := &stubHook{}
	svc, _ := newTestService(t, hook, nil)

	sale := createSale(t, svc, "broker-1", "", "1000000")

	_, err := svc.TransitionStatus(context.Background(), testTenant, sale.ID, StatusWon)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(context.Background(), testTenant, sale.ID, StatusWon)
	require.NoError(t, err)

	require.Len(t, hook.events, 1)
}

func TestTransitionStatus_UnknownSale(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.TransitionStatus(context.Background(), testTenant, "missing", StatusWon)
	require.Error(t, err)
}

func TestTransitionStatus_TenantIsolation(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	sale := createSale(t, svc, "broker-1", "", "1000000")

	_, err := svc.TransitionStatus(context.Background(), tenant.Context{TenantID: "tenant-2"}, sale.ID, StatusWon)
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	s1 := createSale(t, svc, "broker-1", "project-1", "1000000")
	s2 := createSale(t, svc, "broker-1", "project-2", "2000000")
	s3 := createSale(t, svc, "broker-1", "project-1", "4000000")

	_, err := svc.TransitionStatus(context.Background(), testTenant, s1.ID, StatusWon)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(context.Background(), testTenant, s2.ID, StatusWon)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(context.Background(), testTenant, s3.ID, StatusLost)
	require.NoError(t, err)

	count, err := svc.WonCount(context.Background(), testTenant, "broker-1", "")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = svc.WonCount(context.Background(), testTenant, "broker-1", "project-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	volume, err := svc.WonVolume(context.Background(), testTenant, "broker-1", "")
	require.NoError(t, err)
	require.Equal(t, "3000000", volume.String())

	volume, err = svc.WonVolume(context.Background(), testTenant, "broker-2", "")
	require.NoError(t, err)
	require.True(t, volume.IsZero())
}

func TestRecordVisit(t *testing.T) {
	enq := &stubEnqueuer{}
	svc, db := newTestService(t, nil, enq)

	visit, err := svc.RecordVisit(context.Background(), testTenant, RecordVisitInput{
		BrokerID:  "broker-1",
		ProjectID: "project-1",
		Notes:     "showed unit A-12",
	})
	require.NoError(t, err)
	require.NotEmpty(t, visit.ID)
	require.False(t, visit.VisitedAt.IsZero())

	var count int64
	require.NoError(t, db.Model(&Visit{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	visits, err := svc.VisitCount(context.Background(), testTenant, "broker-1", "project-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, visits)

	require.Len(t, enq.tasks, 1)

	var payload incentive.EvaluatePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, "visit", payload.EventType)
}

func TestCreateSale_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.CreateSale(context.Background(), testTenant, CreateSaleInput{
		Amount:   "1000000",
		Currency: "IDR",
	})
	require.Error(t, err, "missing broker")

	_, err = svc.CreateSale(context.Background(), testTenant, CreateSaleInput{
		BrokerID: "broker-1",
		Amount:   "-1",
		Currency: "IDR",
	})
	require.Error(t, err, "negative amount")

	_, err = svc.CreateSale(context.Background(), testTenant, CreateSaleInput{
		BrokerID: "broker-1",
		Amount:   "1000000",
	})
	require.Error(t, err, "missing currency")
}
