package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
)

// Service is the owner disbursement engine.
type Service interface {
	// InitiateForPayment creates and executes the payout for a completed
	// rent payment. Safe to call twice: the second call finds the
	// existing payout and returns without a new transfer.
	InitiateForPayment(ctx context.Context, paymentID snowflake.ID) error
	// Retry re-runs a payout that is retry_scheduled or failed with
	// retries remaining.
	Retry(ctx context.Context, payoutID snowflake.ID) (*ledgerdomain.OwnerPayout, error)
	// SyncTransferStatus refreshes a processing payout's state from the
	// payout gateway.
	SyncTransferStatus(ctx context.Context, payoutID snowflake.ID) (*ledgerdomain.OwnerPayout, error)
	// RunDueRetries executes every payout whose next_retry_at has
	// passed. Returns the number attempted.
	RunDueRetries(ctx context.Context) (int, error)
	// Status returns the payout for a payment, nil when none exists.
	Status(ctx context.Context, paymentID snowflake.ID) (*ledgerdomain.OwnerPayout, error)
}
