package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repositories take an optional *gorm.DB so callers can scope a group of
// writes to one transaction; nil falls back to the default handle.

type PaymentRepository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Payment) error
	Update(ctx context.Context, db *gorm.DB, p *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Payment, error)
	// SumCompletedByTenant totals every completed payment's base amount
	// for outstanding-balance recomputation.
	SumCompletedByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (decimal.Decimal, error)
	// MarkCompleted is a status-guarded pending->completed transition.
	// Returns false when the row was not in pending (idempotent no-op).
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type TransactionRepository interface {
	Insert(ctx context.Context, db *gorm.DB, t *PaymentTransaction) error
	Update(ctx context.Context, db *gorm.DB, t *PaymentTransaction) error
	FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*PaymentTransaction, error)
	// ListReconcilable returns transactions still awaiting a terminal
	// gateway state, old enough to reconcile.
	ListReconcilable(ctx context.Context, db *gorm.DB, createdBefore time.Time) ([]PaymentTransaction, error)
	// RecordAttempt bumps the attempt counter, moves reconciliation to
	// in_progress, and stamps updated_at, which anchors the next check.
	RecordAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	// Resolve applies the terminal transaction state reached via
	// reconciliation or webhook delivery.
	Resolve(ctx context.Context, db *gorm.DB, orderID string, status TransactionStatus, recon ReconciliationStatus) error
}

type OwnerPaymentRepository interface {
	Insert(ctx context.Context, db *gorm.DB, p *OwnerPayment) error
	Update(ctx context.Context, db *gorm.DB, p *OwnerPayment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OwnerPayment, error)
	FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*OwnerPayment, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type PayoutRepository interface {
	Insert(ctx context.Context, db *gorm.DB, p *OwnerPayout) error
	Update(ctx context.Context, db *gorm.DB, p *OwnerPayout) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OwnerPayout, error)
	FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*OwnerPayout, error)
	// ListDueRetries returns retry_scheduled payouts whose next_retry_at
	// has passed.
	ListDueRetries(ctx context.Context, db *gorm.DB, now time.Time) ([]OwnerPayout, error)
}

type PlanRepository interface {
	Insert(ctx context.Context, db *gorm.DB, p *PricingPlan) error
	FindActiveByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PricingPlan, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]PricingPlan, error)
	CountByName(ctx context.Context, db *gorm.DB, name string) (int64, error)
}

type OwnerRepository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Owner, error)
	Update(ctx context.Context, db *gorm.DB, o *Owner) error
	// RecountUnits refreshes the denormalized unit counters on the
	// owner's properties from the units table and returns the owner's
	// live total (explicit recomputation, no event bus).
	RecountUnits(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int, error)
	// ListExpired returns active owners whose subscription window has
	// lapsed as of now.
	ListExpired(ctx context.Context, db *gorm.DB, now time.Time) ([]Owner, error)
}

type TenantKeyRepository interface {
	// FindActiveByTenant returns the in-use key (with unit and property
	// preloaded) that places the tenant in a unit.
	FindActiveByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*TenantKey, error)
}

type InvoiceRepository interface {
	// GetOrCreateForPayment returns the existing invoice for a payment
	// or creates a paid one; idempotent under double completion.
	GetOrCreateForPayment(ctx context.Context, db *gorm.DB, inv *Invoice) (*Invoice, bool, error)
	// FindByPaymentID returns the invoice for a payment, nil when the
	// payment has not completed yet.
	FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*Invoice, error)
}

type OrderResolver interface {
	// Resolve probes both ledgers for a merchant order id.
	Resolve(ctx context.Context, db *gorm.DB, orderID string) (OrderRef, error)
}
