package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	"github.com/zeltonlabs/zelton/internal/ledger/repository"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeStatusGateway struct {
	states  map[string]string
	queried []string
}

func (f *fakeStatusGateway) GetOrderStatus(_ context.Context, merchantOrderID string) (*gatewaydomain.OrderStatus, error) {
	f.queried = append(f.queried, merchantOrderID)
	state, ok := f.states[merchantOrderID]
	if !ok {
		state = gatewaydomain.OrderStatePending
	}
	return &gatewaydomain.OrderStatus{State: state}, nil
}

func (f *fakeStatusGateway) CreateCheckout(context.Context, gatewaydomain.CreateCheckoutInput) (*gatewaydomain.CheckoutSession, error) {
	return nil, nil
}

func (f *fakeStatusGateway) CreateRefund(context.Context, string, string, int64) (*gatewaydomain.RefundResult, error) {
	return nil, nil
}

func (f *fakeStatusGateway) ValidateCallback(string, string, string, []byte) (*gatewaydomain.Callback, error) {
	return nil, nil
}

type fakeLifecycle struct {
	completed []string
	failed    []string
}

func (f *fakeLifecycle) HandleOrderCompleted(_ context.Context, orderID string, _ *gatewaydomain.OrderStatus) error {
	f.completed = append(f.completed, orderID)
	return nil
}

func (f *fakeLifecycle) HandleOrderFailed(_ context.Context, orderID string, _ *gatewaydomain.OrderStatus) error {
	f.failed = append(f.failed, orderID)
	return nil
}

type sweepTestEnv struct {
	svc       *Service
	db        *gorm.DB
	gateway   *fakeStatusGateway
	lifecycle *fakeLifecycle
	node      *snowflake.Node
	now       time.Time
}

func newSweepTestEnv(t *testing.T) *sweepTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.PaymentTransaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	gw := &fakeStatusGateway{states: map[string]string{}}
	lc := &fakeLifecycle{}

	svc := &Service{
		transactions: repository.NewTransactionRepository(db),
		checkout:     gw,
		lifecycle:    lc,
		clock:        fixedClock{t: now},
		minAge:       MinAge,
		sleeper:      realSleeper{},
		logger:       zap.NewNop(),
	}
	return &sweepTestEnv{svc: svc, db: db, gateway: gw, lifecycle: lc, node: node, now: now}
}

func (e *sweepTestEnv) seedTxn(t *testing.T, orderID string, age time.Duration) *ledgerdomain.PaymentTransaction {
	t.Helper()
	created := e.now.Add(-age)
	txn := ledgerdomain.PaymentTransaction{
		ID:              e.node.Generate(),
		MerchantOrderID: orderID,
		Amount:          decimal.NewFromInt(8160),
		Status:          ledgerdomain.TransactionStatusProcessing,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	require.NoError(t, e.db.Create(&txn).Error)
	return &txn
}

func TestSweepSkipsYoungTransactions(t *testing.T) {
	env := newSweepTestEnv(t)
	env.seedTxn(t, "RENT_YOUNG", 10*time.Second)

	report, err := env.svc.Sweep(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.Empty(t, env.gateway.queried)
}

func TestSweepSettlesCompletedOrder(t *testing.T) {
	env := newSweepTestEnv(t)
	env.seedTxn(t, "RENT_DONE", 30*time.Second)
	env.gateway.states["RENT_DONE"] = gatewaydomain.OrderStateCompleted

	report, err := env.svc.Sweep(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, []string{"RENT_DONE"}, env.lifecycle.completed)

	var txn ledgerdomain.PaymentTransaction
	require.NoError(t, env.db.First(&txn, "merchant_order_id = ?", "RENT_DONE").Error)
	assert.Equal(t, 1, txn.PaymentAttemptCount)
	assert.Equal(t, ledgerdomain.ReconciliationInProgress, txn.ReconciliationStatus,
		"terminal flip happens in the lifecycle handler, not the sweep")
}

func TestSweepRoutesFailedOrder(t *testing.T) {
	env := newSweepTestEnv(t)
	env.seedTxn(t, "RENT_BAD", 30*time.Second)
	env.gateway.states["RENT_BAD"] = gatewaydomain.OrderStateFailed

	report, err := env.svc.Sweep(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"RENT_BAD"}, env.lifecycle.failed)
}

func TestSweepLeavesPendingForNextInterval(t *testing.T) {
	env := newSweepTestEnv(t)
	env.seedTxn(t, "RENT_WAIT", 30*time.Second)

	report, err := env.svc.Sweep(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pending)
	assert.Empty(t, env.lifecycle.completed)
	assert.Empty(t, env.lifecycle.failed)

	// The attempt bumped updated_at, so an immediate second sweep finds
	// nothing due.
	env.gateway.queried = nil
	report, err = env.svc.Sweep(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.Empty(t, env.gateway.queried)
}

func TestSweepWarnsOnUnrecognizedState(t *testing.T) {
	env := newSweepTestEnv(t)
	core, logs := observer.New(zap.WarnLevel)
	env.svc.logger = zap.New(core)

	env.seedTxn(t, "RENT_ODD", 30*time.Second)
	env.gateway.states["RENT_ODD"] = "UNDER_REVIEW"

	report, err := env.svc.Sweep(context.Background(), false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pending, "unknown states stay in the sweep")
	assert.Empty(t, env.lifecycle.completed)
	assert.Empty(t, env.lifecycle.failed)

	entries := logs.FilterMessage("unrecognized gateway order state").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "UNDER_REVIEW", entries[0].ContextMap()["state"])
}

func TestSweepDryRunTouchesNothing(t *testing.T) {
	env := newSweepTestEnv(t)
	env.seedTxn(t, "RENT_DRY", 30*time.Second)
	env.gateway.states["RENT_DRY"] = gatewaydomain.OrderStateCompleted

	report, err := env.svc.Sweep(context.Background(), true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Eligible)
	assert.Zero(t, report.Checked)
	assert.Empty(t, env.gateway.queried)
	assert.Empty(t, env.lifecycle.completed)

	var txn ledgerdomain.PaymentTransaction
	require.NoError(t, env.db.First(&txn, "merchant_order_id = ?", "RENT_DRY").Error)
	assert.Zero(t, txn.PaymentAttemptCount)
}

func TestSweepHonorsMaxAge(t *testing.T) {
	env := newSweepTestEnv(t)
	env.seedTxn(t, "RENT_OLD", 2*time.Hour)
	env.seedTxn(t, "RENT_NEW", 30*time.Second)

	report, err := env.svc.Sweep(context.Background(), false, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, []string{"RENT_NEW"}, env.gateway.queried)
}
