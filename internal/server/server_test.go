package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/config"
	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	rentdomain "github.com/zeltonlabs/zelton/internal/rentpayment/domain"
	subscriptiondomain "github.com/zeltonlabs/zelton/internal/subscription/domain"
	"github.com/zeltonlabs/zelton/internal/webhook"
)

type fakeRentService struct {
	initiateResp *rentdomain.InitiateResponse
	initiateErr  error
	initiateReq  *rentdomain.InitiateRequest

	verifyResp    *ledgerdomain.Payment
	verifyInvoice *ledgerdomain.Invoice
	verifyErr     error
	verifyOrderID string

	outstanding *rentdomain.OutstandingBalance
}

func (f *fakeRentService) Initiate(ctx context.Context, req rentdomain.InitiateRequest) (*rentdomain.InitiateResponse, error) {
	f.initiateReq = &req
	return f.initiateResp, f.initiateErr
}

func (f *fakeRentService) Verify(ctx context.Context, paymentID snowflake.ID) (*ledgerdomain.Payment, error) {
	return f.verifyResp, f.verifyErr
}

func (f *fakeRentService) VerifyByOrderID(ctx context.Context, merchantOrderID string) (*rentdomain.VerifyResponse, error) {
	f.verifyOrderID = merchantOrderID
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &rentdomain.VerifyResponse{Payment: f.verifyResp, Invoice: f.verifyInvoice}, nil
}

func (f *fakeRentService) Outstanding(ctx context.Context, tenantID snowflake.ID) (*rentdomain.OutstandingBalance, error) {
	if f.outstanding == nil {
		return nil, ledgerdomain.ErrNoActiveUnit
	}
	return f.outstanding, nil
}

type fakeSubscriptionService struct {
	initiateResp *subscriptiondomain.InitiateResponse
	initiateErr  error
	upgradeErr   error
	plans        []ledgerdomain.PricingPlan
	verifyResp   *ledgerdomain.OwnerPayment
}

func (f *fakeSubscriptionService) InitiatePayment(ctx context.Context, req subscriptiondomain.InitiateRequest) (*subscriptiondomain.InitiateResponse, error) {
	return f.initiateResp, f.initiateErr
}

func (f *fakeSubscriptionService) InitiateUpgrade(ctx context.Context, req subscriptiondomain.InitiateRequest) (*subscriptiondomain.InitiateResponse, error) {
	if f.upgradeErr != nil {
		return nil, f.upgradeErr
	}
	return f.initiateResp, nil
}

func (f *fakeSubscriptionService) Verify(ctx context.Context, ownerPaymentID snowflake.ID) (*ledgerdomain.OwnerPayment, error) {
	return f.verifyResp, nil
}

func (f *fakeSubscriptionService) VerifyByOrderID(ctx context.Context, merchantOrderID string) (*ledgerdomain.OwnerPayment, error) {
	return f.verifyResp, nil
}

func (f *fakeSubscriptionService) ListPlans(ctx context.Context) ([]ledgerdomain.PricingPlan, error) {
	return f.plans, nil
}

func (f *fakeSubscriptionService) ExpireLapsed(ctx context.Context) (int, error) {
	return 0, nil
}

type fakePayoutService struct {
	retryResp *ledgerdomain.OwnerPayout
	retryErr  error
}

func (f *fakePayoutService) InitiateForPayment(ctx context.Context, paymentID snowflake.ID) error {
	return nil
}

func (f *fakePayoutService) Retry(ctx context.Context, payoutID snowflake.ID) (*ledgerdomain.OwnerPayout, error) {
	return f.retryResp, f.retryErr
}

func (f *fakePayoutService) SyncTransferStatus(ctx context.Context, payoutID snowflake.ID) (*ledgerdomain.OwnerPayout, error) {
	return f.retryResp, f.retryErr
}

func (f *fakePayoutService) RunDueRetries(ctx context.Context) (int, error) { return 0, nil }

func (f *fakePayoutService) Status(ctx context.Context, paymentID snowflake.ID) (*ledgerdomain.OwnerPayout, error) {
	return f.retryResp, f.retryErr
}

type fakeCallbackGateway struct {
	callback    *gatewaydomain.Callback
	validateErr error
}

func (f *fakeCallbackGateway) CreateCheckout(ctx context.Context, in gatewaydomain.CreateCheckoutInput) (*gatewaydomain.CheckoutSession, error) {
	return nil, nil
}

func (f *fakeCallbackGateway) GetOrderStatus(ctx context.Context, merchantOrderID string) (*gatewaydomain.OrderStatus, error) {
	return nil, nil
}

func (f *fakeCallbackGateway) CreateRefund(ctx context.Context, merchantRefundID, originalOrderID string, amountPaise int64) (*gatewaydomain.RefundResult, error) {
	return nil, nil
}

func (f *fakeCallbackGateway) ValidateCallback(username, password, authHeader string, body []byte) (*gatewaydomain.Callback, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.callback, nil
}

type fakeLifecycle struct {
	completed []string
	failed    []string
}

func (f *fakeLifecycle) HandleOrderCompleted(ctx context.Context, merchantOrderID string, status *gatewaydomain.OrderStatus) error {
	f.completed = append(f.completed, merchantOrderID)
	return nil
}

func (f *fakeLifecycle) HandleOrderFailed(ctx context.Context, merchantOrderID string, status *gatewaydomain.OrderStatus) error {
	f.failed = append(f.failed, merchantOrderID)
	return nil
}

type serverFixture struct {
	router    *gin.Engine
	rent      *fakeRentService
	subs      *fakeSubscriptionService
	payouts   *fakePayoutService
	gateway   *fakeCallbackGateway
	lifecycle *fakeLifecycle
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rent := &fakeRentService{}
	subs := &fakeSubscriptionService{}
	payouts := &fakePayoutService{}
	gw := &fakeCallbackGateway{}
	lc := &fakeLifecycle{}

	webhookSvc := webhook.NewService(webhook.ServiceParams{
		Checkout:  gw,
		Lifecycle: lc,
		Config:    config.Config{PhonePeWebhookUsername: "hook", PhonePeWebhookPassword: "s3cret"},
		Logger:    zap.NewNop(),
	})

	srv := &Server{
		engine:          gin.New(),
		rentPaymentSvc:  rent,
		subscriptionSvc: subs,
		payoutSvc:       payouts,
		webhookSvc:      webhookSvc,
		log:             zap.NewNop(),
	}
	srv.RegisterAPIRoutes()

	return &serverFixture{
		router:    srv.engine,
		rent:      rent,
		subs:      subs,
		payouts:   payouts,
		gateway:   gw,
		lifecycle: lc,
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestInitiateRentPayment(t *testing.T) {
	f := newServerFixture(t)
	f.rent.initiateResp = &rentdomain.InitiateResponse{
		PaymentID:       snowflake.ID(42),
		MerchantOrderID: "RENT_1700000000_AB12CD34",
		Amount:          decimal.RequireFromString("8000"),
		GatewayCharge:   decimal.RequireFromString("160"),
		TotalPayable:    decimal.RequireFromString("8160"),
		CheckoutURL:     "https://pay.example/session",
	}

	resp := f.do(t, http.MethodPost, "/api/payments/initiate_rent_payment", gin.H{
		"tenant_id": "123",
		"amount":    "8000",
	})

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, f.rent.initiateReq)
	assert.Equal(t, snowflake.ID(123), f.rent.initiateReq.TenantID)
	assert.Equal(t, "8000", f.rent.initiateReq.Amount)

	var body struct {
		Data rentdomain.InitiateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "RENT_1700000000_AB12CD34", body.Data.MerchantOrderID)
	assert.True(t, body.Data.TotalPayable.Equal(decimal.RequireFromString("8160")))
}

func TestInitiateRentPaymentValidation(t *testing.T) {
	f := newServerFixture(t)

	t.Run("missing fields", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/payments/initiate_rent_payment", gin.H{"amount": "100"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("bad tenant id", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/payments/initiate_rent_payment", gin.H{
			"tenant_id": "not-a-number",
			"amount":    "100",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("exceeds outstanding", func(t *testing.T) {
		f.rent.initiateErr = ledgerdomain.ErrExceedsOutstanding
		defer func() { f.rent.initiateErr = nil }()

		resp := f.do(t, http.MethodPost, "/api/payments/initiate_rent_payment", gin.H{
			"tenant_id": "123",
			"amount":    "999999",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), "exceeds_outstanding_balance")
	})
}

func TestVerifyRentPayment(t *testing.T) {
	f := newServerFixture(t)
	f.rent.verifyResp = &ledgerdomain.Payment{
		ID:              snowflake.ID(42),
		Status:          ledgerdomain.PaymentStatusCompleted,
		MerchantOrderID: "RENT_1700000000_AB12CD34",
	}
	f.rent.verifyInvoice = &ledgerdomain.Invoice{
		ID:            snowflake.ID(43),
		InvoiceNumber: "INV-20260810-0001",
		Status:        ledgerdomain.InvoiceStatusPaid,
	}

	resp := f.do(t, http.MethodGet, "/api/payments/verify-payment/RENT_1700000000_AB12CD34", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "RENT_1700000000_AB12CD34", f.rent.verifyOrderID)
	assert.Contains(t, resp.Body.String(), `"status":"completed"`)
	assert.Contains(t, resp.Body.String(), "INV-20260810-0001")
}

func TestVerifyRentPaymentNotFound(t *testing.T) {
	f := newServerFixture(t)
	f.rent.verifyErr = ledgerdomain.ErrPaymentNotFound

	resp := f.do(t, http.MethodGet, "/api/payments/verify-payment/RENT_X", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSubscriptionRoutes(t *testing.T) {
	f := newServerFixture(t)
	f.subs.initiateResp = &subscriptiondomain.InitiateResponse{
		OwnerPaymentID: snowflake.ID(7),
		PlanName:       "Growth Plan",
		TotalPayable:   decimal.RequireFromString("4720.00"),
	}

	t.Run("initiate payment", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/owner-subscriptions/initiate_payment", gin.H{
			"owner_id": "55",
			"plan_id":  "9",
			"period":   "monthly",
		})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "Growth Plan")
	})

	t.Run("downgrade rejected", func(t *testing.T) {
		f.subs.upgradeErr = ledgerdomain.ErrDowngradeNotAllowed
		defer func() { f.subs.upgradeErr = nil }()

		resp := f.do(t, http.MethodPost, "/api/owner-subscriptions/initiate_upgrade", gin.H{
			"owner_id": "55",
			"plan_id":  "3",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), "downgrade_not_allowed")
	})

	t.Run("list plans", func(t *testing.T) {
		f.subs.plans = []ledgerdomain.PricingPlan{
			{ID: snowflake.ID(1), Name: "Starter Plan", MinUnits: 1, MaxUnits: 20},
		}
		resp := f.do(t, http.MethodGet, "/api/pricing-plans", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "Starter Plan")
	})
}

func TestPayoutRoutes(t *testing.T) {
	f := newServerFixture(t)

	t.Run("retry not retryable", func(t *testing.T) {
		f.payouts.retryErr = ledgerdomain.ErrPayoutNotRetryable
		defer func() { f.payouts.retryErr = nil }()

		resp := f.do(t, http.MethodPost, "/api/payouts/99/retry", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("status", func(t *testing.T) {
		f.payouts.retryResp = &ledgerdomain.OwnerPayout{
			ID:     snowflake.ID(99),
			Status: ledgerdomain.PayoutStatusCompleted,
			UTR:    "UTR123",
		}
		resp := f.do(t, http.MethodGet, "/api/payouts/99/status", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "UTR123")
	})

	t.Run("bad id", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/payouts/abc/retry", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestPhonePeWebhook(t *testing.T) {
	t.Run("valid callback settles", func(t *testing.T) {
		f := newServerFixture(t)
		f.gateway.callback = &gatewaydomain.Callback{
			Type:            gatewaydomain.CallbackCheckoutCompleted,
			MerchantOrderID: "RENT_1700000000_AB12CD34",
			State:           gatewaydomain.OrderStateCompleted,
		}

		resp := f.do(t, http.MethodPost, "/api/webhooks/phonepe-webhook", gin.H{"event": "ignored-by-fake"})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"RENT_1700000000_AB12CD34"}, f.lifecycle.completed)
	})

	t.Run("invalid signature", func(t *testing.T) {
		f := newServerFixture(t)
		f.gateway.validateErr = gatewaydomain.ErrInvalidCallback

		resp := f.do(t, http.MethodPost, "/api/webhooks/phonepe-webhook", gin.H{"event": "x"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Empty(t, f.lifecycle.completed)
	})
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ok")
}
