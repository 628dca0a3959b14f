package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
)

type InitiateRequest struct {
	TenantID    snowflake.ID
	Amount      string
	PaymentType ledgerdomain.PaymentType
}

type InitiateResponse struct {
	PaymentID       snowflake.ID    `json:"payment_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	GatewayCharge   decimal.Decimal `json:"gateway_charge"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	CheckoutURL     string          `json:"checkout_url"`
	ExpireAt        time.Time       `json:"expire_at"`
}

type VerifyResponse struct {
	Payment *ledgerdomain.Payment `json:"payment"`
	Invoice *ledgerdomain.Invoice `json:"invoice,omitempty"`
}

type OutstandingBalance struct {
	TenantID     snowflake.ID    `json:"tenant_id"`
	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
	MonthsBilled int             `json:"months_billed"`
	TotalBilled  decimal.Decimal `json:"total_billed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// Service initiates tenant rent payments against the checkout gateway.
type Service interface {
	// Initiate validates the amount against the tenant's outstanding
	// balance, opens a checkout session, and records the pending
	// payment with its gateway transaction.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	// Verify polls the gateway for the payment's order state and
	// settles it when terminal. Idempotent.
	Verify(ctx context.Context, paymentID snowflake.ID) (*ledgerdomain.Payment, error)
	// VerifyByOrderID is Verify keyed by merchant order id, the handle
	// clients carry out of checkout. The invoice rides along once the
	// payment has completed.
	VerifyByOrderID(ctx context.Context, merchantOrderID string) (*VerifyResponse, error)
	// Outstanding recomputes the tenant's balance from move-in date,
	// monthly rent, and completed payments.
	Outstanding(ctx context.Context, tenantID snowflake.ID) (*OutstandingBalance, error)
}
