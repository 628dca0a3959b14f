package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zeltonlabs/zelton/internal/clock"
	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	"github.com/zeltonlabs/zelton/internal/lifecycle/domain"
	"github.com/zeltonlabs/zelton/internal/metrics"
)

type ServiceParams struct {
	fx.In

	Resolver      ledgerdomain.OrderResolver
	Payments      ledgerdomain.PaymentRepository
	Transactions  ledgerdomain.TransactionRepository
	OwnerPayments ledgerdomain.OwnerPaymentRepository
	Owners        ledgerdomain.OwnerRepository
	Plans         ledgerdomain.PlanRepository
	Invoices      ledgerdomain.InvoiceRepository
	Payouts       domain.PayoutInitiator
	GenID         *snowflake.Node
	Clock         clock.Clock
	Logger        *zap.Logger
	DB            *gorm.DB
}

type ServiceImpl struct {
	resolver      ledgerdomain.OrderResolver
	payments      ledgerdomain.PaymentRepository
	transactions  ledgerdomain.TransactionRepository
	ownerPayments ledgerdomain.OwnerPaymentRepository
	owners        ledgerdomain.OwnerRepository
	plans         ledgerdomain.PlanRepository
	invoices      ledgerdomain.InvoiceRepository
	payouts       domain.PayoutInitiator
	genID         *snowflake.Node
	clock         clock.Clock
	logger        *zap.Logger
	db            *gorm.DB
}

func NewService(p ServiceParams) domain.Service {
	return &ServiceImpl{
		resolver:      p.Resolver,
		payments:      p.Payments,
		transactions:  p.Transactions,
		ownerPayments: p.OwnerPayments,
		owners:        p.Owners,
		plans:         p.Plans,
		invoices:      p.Invoices,
		payouts:       p.Payouts,
		genID:         p.GenID,
		clock:         p.Clock,
		logger:        p.Logger.Named("lifecycle"),
		db:            p.DB,
	}
}

func (s *ServiceImpl) HandleOrderCompleted(ctx context.Context, merchantOrderID string, status *gatewaydomain.OrderStatus) error {
	ref, err := s.resolver.Resolve(ctx, s.db, merchantOrderID)
	if err != nil {
		return err
	}

	switch ref.Kind {
	case ledgerdomain.OrderRefRent:
		return s.completeRentPayment(ctx, ref.Payment, status)
	case ledgerdomain.OrderRefOwner:
		return s.completeOwnerPayment(ctx, ref.OwnerPayment, status)
	default:
		return ledgerdomain.ErrOrderNotFound
	}
}

func (s *ServiceImpl) HandleOrderFailed(ctx context.Context, merchantOrderID string, status *gatewaydomain.OrderStatus) error {
	ref, err := s.resolver.Resolve(ctx, s.db, merchantOrderID)
	if err != nil {
		return err
	}

	switch ref.Kind {
	case ledgerdomain.OrderRefRent:
		return s.failRentPayment(ctx, ref.Payment, status)
	case ledgerdomain.OrderRefOwner:
		return s.failOwnerPayment(ctx, ref.OwnerPayment, status)
	default:
		return ledgerdomain.ErrOrderNotFound
	}
}

func (s *ServiceImpl) completeRentPayment(ctx context.Context, payment *ledgerdomain.Payment, status *gatewaydomain.OrderStatus) error {
	now := s.clock.Now()
	settled := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := s.payments.MarkCompleted(ctx, tx, payment.ID, now)
		if err != nil {
			return err
		}
		if !flipped {
			// The other delivery path got here first. The transaction row
			// was resolved alongside that flip and must not be rewritten.
			s.logger.Info("payment already terminal, completion skipped",
				zap.Int64("payment_id", int64(payment.ID)),
				zap.String("merchant_order_id", payment.MerchantOrderID))
			return nil
		}
		if err := s.transactions.Resolve(ctx, tx, payment.MerchantOrderID,
			ledgerdomain.TransactionStatusSuccess, ledgerdomain.ReconciliationCompleted); err != nil {
			return err
		}

		payment.Status = ledgerdomain.PaymentStatusCompleted
		payment.PaymentDate = &now
		applyRentProvenance(payment, status)
		if err := s.payments.Update(ctx, tx, payment); err != nil {
			return err
		}

		inv := &ledgerdomain.Invoice{
			ID:            s.genID.Generate(),
			TenantID:      payment.TenantID,
			UnitID:        payment.UnitID,
			PaymentID:     &payment.ID,
			InvoiceNumber: ledgerdomain.NewInvoiceNumber(now),
			Amount:        payment.Total(),
			RentAmount:    payment.Amount,
			DueDate:       payment.DueDate,
			Status:        ledgerdomain.InvoiceStatusPaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, created, err := s.invoices.GetOrCreateForPayment(ctx, tx, inv); err != nil {
			return err
		} else if created {
			s.logger.Info("invoice generated",
				zap.Int64("payment_id", int64(payment.ID)),
				zap.String("invoice_number", inv.InvoiceNumber))
		}

		settled = true
		return nil
	})
	if err != nil {
		return err
	}

	// The payout runs after the payment commit and must never undo it.
	if settled {
		metrics.PaymentsSettledTotal.WithLabelValues("completed").Inc()
		s.triggerPayout(ctx, payment.ID)
	}
	return nil
}

func (s *ServiceImpl) failRentPayment(ctx context.Context, payment *ledgerdomain.Payment, status *gatewaydomain.OrderStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := s.payments.MarkFailed(ctx, tx, payment.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		if err := s.transactions.Resolve(ctx, tx, payment.MerchantOrderID,
			ledgerdomain.TransactionStatusFailed, ledgerdomain.ReconciliationCompleted); err != nil {
			return err
		}

		payment.Status = ledgerdomain.PaymentStatusFailed
		applyRentProvenance(payment, status)
		if err := s.payments.Update(ctx, tx, payment); err != nil {
			return err
		}

		metrics.PaymentsSettledTotal.WithLabelValues("failed").Inc()
		s.logger.Info("payment failed",
			zap.Int64("payment_id", int64(payment.ID)),
			zap.String("merchant_order_id", payment.MerchantOrderID))
		return nil
	})
}

func (s *ServiceImpl) completeOwnerPayment(ctx context.Context, op *ledgerdomain.OwnerPayment, status *gatewaydomain.OrderStatus) error {
	now := s.clock.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := s.ownerPayments.MarkCompleted(ctx, tx, op.ID, now)
		if err != nil {
			return err
		}
		if !flipped {
			s.logger.Info("subscription payment already terminal, completion skipped",
				zap.Int64("owner_payment_id", int64(op.ID)))
			return nil
		}
		if err := s.transactions.Resolve(ctx, tx, op.MerchantOrderID,
			ledgerdomain.TransactionStatusSuccess, ledgerdomain.ReconciliationCompleted); err != nil {
			return err
		}

		if op.PricingPlanID == nil {
			return ledgerdomain.ErrPlanNotFound
		}
		plan, err := s.plans.FindActiveByID(ctx, tx, *op.PricingPlanID)
		if err != nil {
			return err
		}
		owner, err := s.owners.FindByID(ctx, tx, op.OwnerID)
		if err != nil {
			return err
		}

		// Renewal of the same plan extends from the current window end;
		// everything else starts a fresh window now.
		start := now
		if owner.SubscriptionStatus == ledgerdomain.SubscriptionStatusActive &&
			owner.SubscriptionPlanID != nil && *owner.SubscriptionPlanID == plan.ID &&
			owner.SubscriptionEndDate != nil && owner.SubscriptionEndDate.After(now) {
			start = *owner.SubscriptionEndDate
		}
		end := start.Add(plan.WindowFor(op.SubscriptionPeriod))

		owner.SubscriptionPlanID = &plan.ID
		owner.SubscriptionStatus = ledgerdomain.SubscriptionStatusActive
		owner.SubscriptionStartDate = &start
		owner.SubscriptionEndDate = &end
		owner.UpdatedAt = now
		if err := s.owners.Update(ctx, tx, owner); err != nil {
			return err
		}

		op.Status = ledgerdomain.OwnerPaymentStatusCompleted
		op.PaymentDate = &now
		op.SubscriptionStartDate = &start
		op.SubscriptionEndDate = &end
		applyOwnerProvenance(op, status)
		if err := s.ownerPayments.Update(ctx, tx, op); err != nil {
			return err
		}

		metrics.PaymentsSettledTotal.WithLabelValues("completed").Inc()
		s.logger.Info("subscription activated",
			zap.Int64("owner_id", int64(owner.ID)),
			zap.Int64("plan_id", int64(plan.ID)),
			zap.String("period", string(op.SubscriptionPeriod)),
			zap.Time("end_date", end))
		return nil
	})
}

func (s *ServiceImpl) failOwnerPayment(ctx context.Context, op *ledgerdomain.OwnerPayment, status *gatewaydomain.OrderStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := s.ownerPayments.MarkFailed(ctx, tx, op.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		if err := s.transactions.Resolve(ctx, tx, op.MerchantOrderID,
			ledgerdomain.TransactionStatusFailed, ledgerdomain.ReconciliationCompleted); err != nil {
			return err
		}

		op.Status = ledgerdomain.OwnerPaymentStatusFailed
		applyOwnerProvenance(op, status)
		if err := s.ownerPayments.Update(ctx, tx, op); err != nil {
			return err
		}

		metrics.PaymentsSettledTotal.WithLabelValues("failed").Inc()
		s.logger.Info("subscription payment failed",
			zap.Int64("owner_payment_id", int64(op.ID)),
			zap.String("merchant_order_id", op.MerchantOrderID))
		return nil
	})
}

// triggerPayout isolates disbursement from the payment lifecycle: any
// failure here is logged and left for the retry sweep, never propagated
// back to the completion path.
func (s *ServiceImpl) triggerPayout(ctx context.Context, paymentID snowflake.ID) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("payout trigger panicked",
				zap.Int64("payment_id", int64(paymentID)),
				zap.Any("panic", r))
		}
	}()

	if err := s.payouts.InitiateForPayment(ctx, paymentID); err != nil {
		s.logger.Error("payout initiation failed",
			zap.Int64("payment_id", int64(paymentID)),
			zap.Error(err))
	}
}

func applyRentProvenance(p *ledgerdomain.Payment, status *gatewaydomain.OrderStatus) {
	if status == nil {
		return
	}
	if status.OrderID != "" {
		p.GatewayOrderID = status.OrderID
	}
	if status.TransactionID != "" {
		p.GatewayTransactionID = status.TransactionID
	}
	if len(status.PaymentDetails) > 0 {
		p.GatewayResponse = datatypes.JSON(status.PaymentDetails)
	}
}

func applyOwnerProvenance(op *ledgerdomain.OwnerPayment, status *gatewaydomain.OrderStatus) {
	if status == nil {
		return
	}
	if status.OrderID != "" {
		op.GatewayOrderID = status.OrderID
	}
	if status.TransactionID != "" {
		op.GatewayTransactionID = status.TransactionID
	}
	if len(status.PaymentDetails) > 0 {
		op.GatewayResponse = datatypes.JSON(status.PaymentDetails)
	}
}
