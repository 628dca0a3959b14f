package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
)

// Service applies terminal gateway states to the owning ledger record.
// Both delivery paths (webhook and reconciliation) converge here, so
// every transition is guarded and double delivery is a no-op.
type Service interface {
	// HandleOrderCompleted settles the order behind a merchant order id:
	// guarded status flip, gateway provenance, invoice or subscription
	// activation, and the payout trigger for rent payments.
	HandleOrderCompleted(ctx context.Context, merchantOrderID string, status *gatewaydomain.OrderStatus) error
	// HandleOrderFailed records a terminal gateway failure.
	HandleOrderFailed(ctx context.Context, merchantOrderID string, status *gatewaydomain.OrderStatus) error
}

// PayoutInitiator starts the owner disbursement for a completed rent
// payment. Implemented by the payout engine; declared here so payment
// completion does not import it.
type PayoutInitiator interface {
	InitiateForPayment(ctx context.Context, paymentID snowflake.ID) error
}
