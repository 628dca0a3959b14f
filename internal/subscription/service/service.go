package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zeltonlabs/zelton/internal/clock"
	"github.com/zeltonlabs/zelton/internal/config"
	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	lifecycledomain "github.com/zeltonlabs/zelton/internal/lifecycle/domain"
	"github.com/zeltonlabs/zelton/internal/metrics"
	"github.com/zeltonlabs/zelton/internal/subscription/domain"
	"github.com/zeltonlabs/zelton/pkg/money"
)

const orderPrefix = "SUB"

type ServiceParams struct {
	fx.In

	Owners        ledgerdomain.OwnerRepository
	OwnerPayments ledgerdomain.OwnerPaymentRepository
	Plans         ledgerdomain.PlanRepository
	Transactions  ledgerdomain.TransactionRepository
	Checkout      gatewaydomain.CheckoutGateway
	Lifecycle     lifecycledomain.Service
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        config.Config
	Logger        *zap.Logger
	DB            *gorm.DB
}

type ServiceImpl struct {
	owners        ledgerdomain.OwnerRepository
	ownerPayments ledgerdomain.OwnerPaymentRepository
	plans         ledgerdomain.PlanRepository
	transactions  ledgerdomain.TransactionRepository
	checkout      gatewaydomain.CheckoutGateway
	lifecycle     lifecycledomain.Service
	genID         *snowflake.Node
	clock         clock.Clock
	cfg           config.Config
	logger        *zap.Logger
	db            *gorm.DB
}

func NewService(p ServiceParams) domain.Service {
	return &ServiceImpl{
		owners:        p.Owners,
		ownerPayments: p.OwnerPayments,
		plans:         p.Plans,
		transactions:  p.Transactions,
		checkout:      p.Checkout,
		lifecycle:     p.Lifecycle,
		genID:         p.GenID,
		clock:         p.Clock,
		cfg:           p.Config,
		logger:        p.Logger.Named("subscription"),
		db:            p.DB,
	}
}

func (s *ServiceImpl) InitiatePayment(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResponse, error) {
	owner, plan, err := s.validatePlanChange(ctx, req)
	if err != nil {
		return nil, err
	}

	paymentType := ledgerdomain.OwnerPaymentTypeSubscription
	if owner.SubscriptionPlanID != nil && *owner.SubscriptionPlanID == plan.ID {
		paymentType = ledgerdomain.OwnerPaymentTypeRenewal
	}
	return s.openCheckout(ctx, owner, plan, req.Period, paymentType)
}

func (s *ServiceImpl) InitiateUpgrade(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResponse, error) {
	owner, plan, err := s.validatePlanChange(ctx, req)
	if err != nil {
		return nil, err
	}

	// Upgrades must move to a strictly larger plan.
	if owner.SubscriptionPlanID != nil {
		current, err := s.plans.FindActiveByID(ctx, nil, *owner.SubscriptionPlanID)
		if err != nil {
			return nil, err
		}
		if plan.MaxUnits <= current.MaxUnits {
			return nil, ledgerdomain.ErrDowngradeNotAllowed
		}
	}
	return s.openCheckout(ctx, owner, plan, req.Period, ledgerdomain.OwnerPaymentTypeUpgrade)
}

// validatePlanChange runs the checks shared by every plan purchase:
// the plan must exist, cover the owner's current unit count, and never
// shrink an active subscription's capacity.
func (s *ServiceImpl) validatePlanChange(ctx context.Context, req domain.InitiateRequest) (*ledgerdomain.Owner, *ledgerdomain.PricingPlan, error) {
	if req.Period != ledgerdomain.PeriodYearly {
		req.Period = ledgerdomain.PeriodMonthly
	}

	owner, err := s.owners.FindByID(ctx, nil, req.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.plans.FindActiveByID(ctx, nil, req.PlanID)
	if err != nil {
		return nil, nil, err
	}

	// The capacity check doubles as the explicit recount: the property
	// counters are refreshed here, where live counts are consulted.
	unitCount, err := s.owners.RecountUnits(ctx, nil, owner.ID)
	if err != nil {
		return nil, nil, err
	}
	if unitCount > plan.MaxUnits {
		return nil, nil, ledgerdomain.ErrPlanInsufficient
	}

	if owner.SubscriptionStatus == ledgerdomain.SubscriptionStatusActive && owner.SubscriptionPlanID != nil {
		current, err := s.plans.FindActiveByID(ctx, nil, *owner.SubscriptionPlanID)
		if err == nil && plan.MaxUnits < current.MaxUnits {
			return nil, nil, ledgerdomain.ErrDowngradeNotAllowed
		}
	}
	return owner, plan, nil
}

func (s *ServiceImpl) openCheckout(ctx context.Context, owner *ledgerdomain.Owner, plan *ledgerdomain.PricingPlan, period ledgerdomain.SubscriptionPeriod, paymentType ledgerdomain.OwnerPaymentType) (*domain.InitiateResponse, error) {
	basePrice := plan.PriceFor(period)
	gst := money.GST(basePrice)
	total := money.WithGST(basePrice)
	now := s.clock.Now()

	op := &ledgerdomain.OwnerPayment{
		ID:                 s.genID.Generate(),
		OwnerID:            owner.ID,
		PricingPlanID:      &plan.ID,
		Amount:             total,
		PaymentType:        paymentType,
		Status:             ledgerdomain.OwnerPaymentStatusPending,
		SubscriptionPeriod: period,
		MerchantOrderID:    gatewaydomain.NewMerchantOrderID(orderPrefix, now),
		Description:        plan.Name + " plan, " + string(period),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	txn := &ledgerdomain.PaymentTransaction{
		ID:              s.genID.Generate(),
		MerchantOrderID: op.MerchantOrderID,
		Amount:          total,
		Status:          ledgerdomain.TransactionStatusInitiated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ownerPayments.Insert(ctx, tx, op); err != nil {
			return err
		}
		return s.transactions.Insert(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	session, err := s.checkout.CreateCheckout(ctx, gatewaydomain.CreateCheckoutInput{
		MerchantOrderID: op.MerchantOrderID,
		AmountPaise:     money.ToPaise(total),
		RedirectURL:     s.cfg.PaymentRedirectURL,
		ExpireAfter:     time.Duration(s.cfg.CheckoutExpiryMinutes) * time.Minute,
		Metadata: map[string]string{
			"owner_id": owner.ID.String(),
			"plan_id":  plan.ID.String(),
		},
	})
	if err != nil {
		s.failInitiation(ctx, op, txn)
		return nil, err
	}

	op.GatewayOrderID = session.OrderID
	txn.GatewayOrderID = session.OrderID
	txn.Status = ledgerdomain.TransactionStatusProcessing
	txn.UpdatedAt = s.clock.Now()
	uerr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ownerPayments.Update(ctx, tx, op); err != nil {
			return err
		}
		return s.transactions.Update(ctx, tx, txn)
	})
	if uerr != nil {
		return nil, uerr
	}

	metrics.PaymentsInitiatedTotal.WithLabelValues("subscription").Inc()
	s.logger.Info("subscription payment initiated",
		zap.Int64("owner_id", int64(owner.ID)),
		zap.Int64("plan_id", int64(plan.ID)),
		zap.String("payment_type", string(paymentType)),
		zap.String("period", string(period)),
		zap.String("total", total.String()))

	return &domain.InitiateResponse{
		OwnerPaymentID:  op.ID,
		MerchantOrderID: op.MerchantOrderID,
		PlanName:        plan.Name,
		Period:          period,
		BasePrice:       basePrice,
		GST:             gst,
		TotalPayable:    total,
		CheckoutURL:     session.RedirectURL,
		ExpireAt:        session.ExpireAt,
	}, nil
}

func (s *ServiceImpl) Verify(ctx context.Context, ownerPaymentID snowflake.ID) (*ledgerdomain.OwnerPayment, error) {
	op, err := s.ownerPayments.FindByID(ctx, nil, ownerPaymentID)
	if err != nil {
		return nil, err
	}
	if op.Status != ledgerdomain.OwnerPaymentStatusPending {
		return op, nil
	}

	status, err := s.checkout.GetOrderStatus(ctx, op.MerchantOrderID)
	if err != nil {
		return nil, err
	}

	switch status.State {
	case gatewaydomain.OrderStateCompleted:
		if err := s.lifecycle.HandleOrderCompleted(ctx, op.MerchantOrderID, status); err != nil {
			return nil, err
		}
	case gatewaydomain.OrderStateFailed:
		if err := s.lifecycle.HandleOrderFailed(ctx, op.MerchantOrderID, status); err != nil {
			return nil, err
		}
	}

	return s.ownerPayments.FindByID(ctx, nil, ownerPaymentID)
}

func (s *ServiceImpl) VerifyByOrderID(ctx context.Context, merchantOrderID string) (*ledgerdomain.OwnerPayment, error) {
	op, err := s.ownerPayments.FindByMerchantOrderID(ctx, nil, merchantOrderID)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, op.ID)
}

func (s *ServiceImpl) ListPlans(ctx context.Context) ([]ledgerdomain.PricingPlan, error) {
	return s.plans.ListActive(ctx, nil)
}

func (s *ServiceImpl) ExpireLapsed(ctx context.Context) (int, error) {
	now := s.clock.Now()
	lapsed, err := s.owners.ListExpired(ctx, nil, now)
	if err != nil {
		return 0, err
	}

	flipped := 0
	for i := range lapsed {
		owner := &lapsed[i]
		owner.SubscriptionStatus = ledgerdomain.SubscriptionStatusExpired
		owner.UpdatedAt = now
		if err := s.owners.Update(ctx, nil, owner); err != nil {
			s.logger.Error("subscription expiry update failed",
				zap.Int64("owner_id", int64(owner.ID)), zap.Error(err))
			continue
		}
		flipped++
		s.logger.Info("subscription expired",
			zap.Int64("owner_id", int64(owner.ID)),
			zap.Timep("end_date", owner.SubscriptionEndDate))
	}
	return flipped, nil
}

func (s *ServiceImpl) failInitiation(ctx context.Context, op *ledgerdomain.OwnerPayment, txn *ledgerdomain.PaymentTransaction) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownerPayments.MarkFailed(ctx, tx, op.ID); err != nil {
			return err
		}
		return s.transactions.Resolve(ctx, tx, txn.MerchantOrderID,
			ledgerdomain.TransactionStatusFailed, ledgerdomain.ReconciliationCompleted)
	})
	if err != nil {
		s.logger.Error("failed to close out rejected checkout",
			zap.Int64("owner_payment_id", int64(op.ID)), zap.Error(err))
	}
}
