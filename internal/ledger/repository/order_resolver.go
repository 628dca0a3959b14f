package repository

import (
	"context"
	"errors"

	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type orderResolver struct {
	payments      domain.PaymentRepository
	ownerPayments domain.OwnerPaymentRepository
}

// NewOrderResolver builds the polymorphic merchant-order-id lookup used
// by the lifecycle transitions. An order id belongs to exactly one of
// the two ledgers, so the probe order is irrelevant for correctness.
func NewOrderResolver(payments domain.PaymentRepository, ownerPayments domain.OwnerPaymentRepository) domain.OrderResolver {
	return &orderResolver{payments: payments, ownerPayments: ownerPayments}
}

func (r *orderResolver) Resolve(ctx context.Context, db *gorm.DB, orderID string) (domain.OrderRef, error) {
	payment, err := r.payments.FindByMerchantOrderID(ctx, db, orderID)
	if err == nil {
		return domain.OrderRef{Kind: domain.OrderRefRent, Payment: payment}, nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return domain.OrderRef{}, err
	}

	ownerPayment, err := r.ownerPayments.FindByMerchantOrderID(ctx, db, orderID)
	if err == nil {
		return domain.OrderRef{Kind: domain.OrderRefOwner, OwnerPayment: ownerPayment}, nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return domain.OrderRef{}, err
	}

	return domain.OrderRef{Kind: domain.OrderRefNotFound}, domain.ErrOrderNotFound
}
