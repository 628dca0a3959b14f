package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
)

type InitiateRequest struct {
	OwnerID snowflake.ID
	PlanID  snowflake.ID
	Period  ledgerdomain.SubscriptionPeriod
}

type InitiateResponse struct {
	OwnerPaymentID  snowflake.ID                    `json:"owner_payment_id"`
	MerchantOrderID string                          `json:"merchant_order_id"`
	PlanName        string                          `json:"plan_name"`
	Period          ledgerdomain.SubscriptionPeriod `json:"period"`
	BasePrice       decimal.Decimal                 `json:"base_price"`
	GST             decimal.Decimal                 `json:"gst"`
	TotalPayable    decimal.Decimal                 `json:"total_payable"`
	CheckoutURL     string                          `json:"checkout_url"`
	ExpireAt        time.Time                       `json:"expire_at"`
}

// Service manages owner subscription purchases, renewals, and upgrades.
type Service interface {
	// InitiatePayment starts a subscription or renewal payment for the
	// chosen plan and billing period. The payable amount is the plan
	// price plus GST.
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	// InitiateUpgrade moves an active owner to a larger plan. Plans
	// with fewer units than the current one are rejected.
	InitiateUpgrade(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	// Verify polls the gateway for the payment's order state and
	// settles it when terminal. Idempotent.
	Verify(ctx context.Context, ownerPaymentID snowflake.ID) (*ledgerdomain.OwnerPayment, error)
	// VerifyByOrderID is Verify keyed by merchant order id.
	VerifyByOrderID(ctx context.Context, merchantOrderID string) (*ledgerdomain.OwnerPayment, error)
	// ListPlans returns the active pricing plans.
	ListPlans(ctx context.Context) ([]ledgerdomain.PricingPlan, error)
	// ExpireLapsed flips active owners whose window has ended to
	// expired. Returns the number flipped.
	ExpireLapsed(ctx context.Context) (int, error)
}
