package service

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
	"gorm.io/gorm"

	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	"github.com/zeltonlabs/zelton/internal/ledger/repository"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakePayoutGateway struct {
	beneficiaries map[string]gatewaydomain.Beneficiary
	transferState string
	transferErr   error
	transfers     []gatewaydomain.TransferInput
}

func newFakePayoutGateway() *fakePayoutGateway {
	return &fakePayoutGateway{
		beneficiaries: map[string]gatewaydomain.Beneficiary{},
		transferState: gatewaydomain.TransferStateCompleted,
	}
}

func (f *fakePayoutGateway) FetchBeneficiary(_ context.Context, id string) (*gatewaydomain.Beneficiary, error) {
	if b, ok := f.beneficiaries[id]; ok {
		return &b, nil
	}
	return nil, gatewaydomain.ErrBeneficiaryNotFound
}

func (f *fakePayoutGateway) CreateBeneficiary(_ context.Context, b gatewaydomain.Beneficiary) (*gatewaydomain.Beneficiary, error) {
	f.beneficiaries[b.ID] = b
	return &b, nil
}

func (f *fakePayoutGateway) InitiateTransfer(_ context.Context, in gatewaydomain.TransferInput) (*gatewaydomain.Transfer, error) {
	if f.transferErr != nil {
		return nil, f.transferErr
	}
	f.transfers = append(f.transfers, in)
	return &gatewaydomain.Transfer{
		TransferID: in.TransferID,
		State:      f.transferState,
		UTR:        "UTR123456",
	}, nil
}

func (f *fakePayoutGateway) FetchTransfer(_ context.Context, transferID string) (*gatewaydomain.Transfer, error) {
	return &gatewaydomain.Transfer{TransferID: transferID, State: f.transferState, UTR: "UTR123456"}, nil
}

type payoutTestEnv struct {
	svc     *ServiceImpl
	db      *gorm.DB
	gateway *fakePayoutGateway
	now     time.Time
}

func newPayoutTestEnv(t *testing.T) *payoutTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ledgerdomain.Owner{}, &ledgerdomain.Property{}, &ledgerdomain.Unit{},
		&ledgerdomain.Payment{}, &ledgerdomain.OwnerPayout{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	gw := newFakePayoutGateway()

	svc := &ServiceImpl{
		payments: repository.NewPaymentRepository(db),
		payouts:  repository.NewPayoutRepository(db),
		owners:   repository.NewOwnerRepository(db),
		gateway:  gw,
		genID:    node,
		clock:    fixedClock{t: now},
		logger:   zap.NewNop(),
		db:       db,
	}
	return &payoutTestEnv{svc: svc, db: db, gateway: gw, now: now}
}

func (e *payoutTestEnv) seedCompletedPayment(t *testing.T, owner ledgerdomain.Owner) *ledgerdomain.Payment {
	t.Helper()

	owner.CreatedAt, owner.UpdatedAt = e.now, e.now
	require.NoError(t, e.db.Create(&owner).Error)

	prop := ledgerdomain.Property{ID: owner.ID + 1, OwnerID: owner.ID, Name: "Sunrise Residency", CreatedAt: e.now, UpdatedAt: e.now}
	require.NoError(t, e.db.Create(&prop).Error)

	unit := ledgerdomain.Unit{
		ID: owner.ID + 2, PropertyID: prop.ID, UnitNumber: "A-101",
		RentAmount: decimal.NewFromInt(8000), RentDueDay: 5,
		Status: ledgerdomain.UnitStatusOccupied, CreatedAt: e.now, UpdatedAt: e.now,
	}
	require.NoError(t, e.db.Create(&unit).Error)

	paidAt := e.now
	payment := ledgerdomain.Payment{
		ID: owner.ID + 3, TenantID: owner.ID + 4, UnitID: unit.ID,
		Amount:        decimal.NewFromInt(8000),
		GatewayCharge: decimal.NewFromInt(160),
		Status:        ledgerdomain.PaymentStatusCompleted,
		DueDate:       e.now, PaymentDate: &paidAt,
		MerchantOrderID: "RENT_1_TEST0001",
		CreatedAt:       e.now, UpdatedAt: e.now,
	}
	require.NoError(t, e.db.Create(&payment).Error)
	return &payment
}

func upiOwner(id int64) ledgerdomain.Owner {
	return ledgerdomain.Owner{
		ID: snowflake.ID(id), FirstName: "Asha", LastName: "Rao",
		Email: "asha@example.com", Phone: "9876543210",
		PayoutMethod: ledgerdomain.PayoutMethodUPI, UPIID: "asha@upi",
	}
}

func TestInitiateForPaymentCompletes(t *testing.T) {
	env := newPayoutTestEnv(t)
	payment := env.seedCompletedPayment(t, upiOwner(1000))

	require.NoError(t, env.svc.InitiateForPayment(context.Background(), payment.ID))

	payout, err := env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, ledgerdomain.PayoutStatusCompleted, payout.Status)
	assert.Equal(t, "UTR123456", payout.UTR)
	assert.True(t, payout.Amount.Equal(decimal.NewFromInt(8000)), "payout carries base rent, not the surcharge")
	require.NotNil(t, payout.CompletedAt)

	// Beneficiary registered under the stable per-owner id.
	_, ok := env.gateway.beneficiaries["OWNER_1000"]
	assert.True(t, ok)

	require.Len(t, env.gateway.transfers, 1)
	assert.Equal(t, int64(800000), env.gateway.transfers[0].AmountPaise)
	assert.Equal(t, "upi", env.gateway.transfers[0].TransferMode)
}

func TestInitiateForPaymentIdempotent(t *testing.T) {
	env := newPayoutTestEnv(t)
	payment := env.seedCompletedPayment(t, upiOwner(2000))

	require.NoError(t, env.svc.InitiateForPayment(context.Background(), payment.ID))
	require.NoError(t, env.svc.InitiateForPayment(context.Background(), payment.ID))

	var count int64
	require.NoError(t, env.db.Model(&ledgerdomain.OwnerPayout{}).
		Where("payment_id = ?", payment.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, env.gateway.transfers, 1)
}

func TestInitiateForPaymentIncompleteDetails(t *testing.T) {
	env := newPayoutTestEnv(t)
	owner := upiOwner(3000)
	owner.UPIID = ""
	payment := env.seedCompletedPayment(t, owner)

	err := env.svc.InitiateForPayment(context.Background(), payment.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrPayoutDetailsIncomplete)

	payout, err := env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Nil(t, payout, "configuration errors create no payout row")
}

func TestInitiateForPaymentRequiresCompleted(t *testing.T) {
	env := newPayoutTestEnv(t)
	payment := env.seedCompletedPayment(t, upiOwner(4000))
	require.NoError(t, env.db.Model(&ledgerdomain.Payment{}).
		Where("id = ?", payment.ID).
		Update("status", ledgerdomain.PaymentStatusPending).Error)

	err := env.svc.InitiateForPayment(context.Background(), payment.ID)
	assert.Error(t, err)
}

func TestTransferFailureSchedulesRetry(t *testing.T) {
	env := newPayoutTestEnv(t)
	env.gateway.transferErr = gatewaydomain.ErrGatewayTimeout
	payment := env.seedCompletedPayment(t, upiOwner(5000))

	require.NoError(t, env.svc.InitiateForPayment(context.Background(), payment.ID))

	payout, err := env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, ledgerdomain.PayoutStatusRetryScheduled, payout.Status)
	assert.Equal(t, 1, payout.RetryCount)
	require.NotNil(t, payout.NextRetryAt)
	assert.True(t, payout.NextRetryAt.Equal(env.now.Add(5*time.Minute)))
}

func TestRetriesExhaustedFailsPermanently(t *testing.T) {
	env := newPayoutTestEnv(t)
	env.gateway.transferErr = gatewaydomain.ErrGatewayTimeout
	payment := env.seedCompletedPayment(t, upiOwner(6000))

	require.NoError(t, env.svc.InitiateForPayment(context.Background(), payment.ID))

	payout, err := env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = env.svc.Retry(context.Background(), payout.ID)
		require.NoError(t, err)
	}

	// Three failures have burned all three retries, but the last of them
	// still schedules its slot at the 45 minute backoff.
	payout, err = env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.PayoutStatusRetryScheduled, payout.Status)
	assert.Equal(t, 3, payout.RetryCount)
	require.NotNil(t, payout.NextRetryAt)
	assert.True(t, payout.NextRetryAt.Equal(env.now.Add(45*time.Minute)))

	// The fourth failure finds no retries left and fails permanently.
	_, err = env.svc.Retry(context.Background(), payout.ID)
	require.NoError(t, err)

	payout, err = env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.PayoutStatusFailed, payout.Status)
	assert.Equal(t, 3, payout.RetryCount)
	assert.Nil(t, payout.NextRetryAt)

	_, err = env.svc.Retry(context.Background(), payout.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrPayoutNotRetryable)
}

func TestRunDueRetriesExecutesDuePayouts(t *testing.T) {
	env := newPayoutTestEnv(t)
	env.gateway.transferErr = gatewaydomain.ErrGatewayTimeout
	payment := env.seedCompletedPayment(t, upiOwner(7000))
	require.NoError(t, env.svc.InitiateForPayment(context.Background(), payment.ID))

	// Not yet due.
	n, err := env.svc.RunDueRetries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Move past the 5 minute backoff and let the transfer succeed.
	env.svc.clock = fixedClock{t: env.now.Add(6 * time.Minute)}
	env.gateway.transferErr = nil

	n, err = env.svc.RunDueRetries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	payout, err := env.svc.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.PayoutStatusCompleted, payout.Status)
}
