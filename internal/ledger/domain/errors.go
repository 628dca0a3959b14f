package domain

import "errors"

var (
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrPayoutNotFound      = errors.New("payout_not_found")
	ErrPlanNotFound        = errors.New("pricing_plan_not_found")
	ErrOwnerNotFound       = errors.New("owner_not_found")
	ErrTenantNotFound      = errors.New("tenant_not_found")
	ErrNoActiveUnit        = errors.New("no_active_unit")
	ErrOrderNotFound       = errors.New("order_not_found")

	ErrExceedsOutstanding      = errors.New("exceeds_outstanding_balance")
	ErrDowngradeNotAllowed     = errors.New("downgrade_not_allowed")
	ErrPlanInsufficient        = errors.New("plan_insufficient")
	ErrPayoutDetailsIncomplete = errors.New("payout_details_incomplete")
	ErrPayoutNotRetryable      = errors.New("payout_not_retryable")
)
