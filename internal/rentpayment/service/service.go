package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zeltonlabs/zelton/internal/clock"
	"github.com/zeltonlabs/zelton/internal/config"
	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	lifecycledomain "github.com/zeltonlabs/zelton/internal/lifecycle/domain"
	"github.com/zeltonlabs/zelton/internal/metrics"
	"github.com/zeltonlabs/zelton/internal/rentpayment/domain"
	"github.com/zeltonlabs/zelton/pkg/money"
)

const orderPrefix = "RENT"

type ServiceParams struct {
	fx.In

	Payments     ledgerdomain.PaymentRepository
	Transactions ledgerdomain.TransactionRepository
	TenantKeys   ledgerdomain.TenantKeyRepository
	Invoices     ledgerdomain.InvoiceRepository
	Checkout     gatewaydomain.CheckoutGateway
	Lifecycle    lifecycledomain.Service
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       config.Config
	Logger       *zap.Logger
	DB           *gorm.DB
}

type ServiceImpl struct {
	payments     ledgerdomain.PaymentRepository
	transactions ledgerdomain.TransactionRepository
	tenantKeys   ledgerdomain.TenantKeyRepository
	invoices     ledgerdomain.InvoiceRepository
	checkout     gatewaydomain.CheckoutGateway
	lifecycle    lifecycledomain.Service
	genID        *snowflake.Node
	clock        clock.Clock
	cfg          config.Config
	logger       *zap.Logger
	db           *gorm.DB
}

func NewService(p ServiceParams) domain.Service {
	return &ServiceImpl{
		payments:     p.Payments,
		transactions: p.Transactions,
		tenantKeys:   p.TenantKeys,
		invoices:     p.Invoices,
		checkout:     p.Checkout,
		lifecycle:    p.Lifecycle,
		genID:        p.GenID,
		clock:        p.Clock,
		cfg:          p.Config,
		logger:       p.Logger.Named("rentpayment"),
		db:           p.DB,
	}
}

func (s *ServiceImpl) Initiate(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResponse, error) {
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, err
	}

	key, err := s.tenantKeys.FindActiveByTenant(ctx, nil, req.TenantID)
	if err != nil {
		return nil, err
	}
	if key.Unit == nil {
		return nil, ledgerdomain.ErrNoActiveUnit
	}

	balance, err := s.outstandingFor(ctx, req.TenantID, key)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(balance.Outstanding) {
		return nil, ledgerdomain.ErrExceedsOutstanding
	}

	total, charge, err := money.TotalPayable(amount)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = ledgerdomain.PaymentTypeRent
	}

	payment := &ledgerdomain.Payment{
		ID:              s.genID.Generate(),
		TenantID:        req.TenantID,
		UnitID:          key.UnitID,
		Amount:          amount,
		GatewayCharge:   charge,
		PaymentType:     paymentType,
		Status:          ledgerdomain.PaymentStatusPending,
		DueDate:         nextDueDate(now, key.Unit.RentDueDay),
		MerchantOrderID: gatewaydomain.NewMerchantOrderID(orderPrefix, now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	txn := &ledgerdomain.PaymentTransaction{
		ID:              s.genID.Generate(),
		MerchantOrderID: payment.MerchantOrderID,
		Amount:          total,
		Status:          ledgerdomain.TransactionStatusInitiated,
		PaymentID:       &payment.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.Insert(ctx, tx, payment); err != nil {
			return err
		}
		return s.transactions.Insert(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	session, err := s.checkout.CreateCheckout(ctx, gatewaydomain.CreateCheckoutInput{
		MerchantOrderID: payment.MerchantOrderID,
		AmountPaise:     money.ToPaise(total),
		RedirectURL:     s.cfg.PaymentRedirectURL,
		ExpireAfter:     time.Duration(s.cfg.CheckoutExpiryMinutes) * time.Minute,
		Metadata: map[string]string{
			"tenant_id": req.TenantID.String(),
		},
	})
	if err != nil {
		// A rejected checkout is terminal for this payment; the tenant
		// initiates a fresh one.
		s.failInitiation(ctx, payment, txn)
		return nil, err
	}

	payment.GatewayOrderID = session.OrderID
	txn.GatewayOrderID = session.OrderID
	txn.Status = ledgerdomain.TransactionStatusProcessing
	txn.UpdatedAt = s.clock.Now()
	uerr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.Update(ctx, tx, payment); err != nil {
			return err
		}
		return s.transactions.Update(ctx, tx, txn)
	})
	if uerr != nil {
		return nil, uerr
	}

	metrics.PaymentsInitiatedTotal.WithLabelValues("rent").Inc()
	s.logger.Info("rent payment initiated",
		zap.Int64("payment_id", int64(payment.ID)),
		zap.String("merchant_order_id", payment.MerchantOrderID),
		zap.String("amount", amount.String()),
		zap.String("gateway_charge", charge.String()))

	return &domain.InitiateResponse{
		PaymentID:       payment.ID,
		MerchantOrderID: payment.MerchantOrderID,
		Amount:          amount,
		GatewayCharge:   charge,
		TotalPayable:    total,
		CheckoutURL:     session.RedirectURL,
		ExpireAt:        session.ExpireAt,
	}, nil
}

func (s *ServiceImpl) Verify(ctx context.Context, paymentID snowflake.ID) (*ledgerdomain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return payment, nil
	}

	status, err := s.checkout.GetOrderStatus(ctx, payment.MerchantOrderID)
	if err != nil {
		return nil, err
	}

	switch status.State {
	case gatewaydomain.OrderStateCompleted:
		if err := s.lifecycle.HandleOrderCompleted(ctx, payment.MerchantOrderID, status); err != nil {
			return nil, err
		}
	case gatewaydomain.OrderStateFailed:
		if err := s.lifecycle.HandleOrderFailed(ctx, payment.MerchantOrderID, status); err != nil {
			return nil, err
		}
	}

	return s.payments.FindByID(ctx, nil, paymentID)
}

func (s *ServiceImpl) VerifyByOrderID(ctx context.Context, merchantOrderID string) (*domain.VerifyResponse, error) {
	payment, err := s.payments.FindByMerchantOrderID(ctx, nil, merchantOrderID)
	if err != nil {
		return nil, err
	}
	payment, err = s.Verify(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	resp := &domain.VerifyResponse{Payment: payment}
	if payment.Status == ledgerdomain.PaymentStatusCompleted {
		inv, err := s.invoices.FindByPaymentID(ctx, nil, payment.ID)
		if err != nil {
			return nil, err
		}
		resp.Invoice = inv
	}
	return resp, nil
}

func (s *ServiceImpl) Outstanding(ctx context.Context, tenantID snowflake.ID) (*domain.OutstandingBalance, error) {
	key, err := s.tenantKeys.FindActiveByTenant(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	return s.outstandingFor(ctx, tenantID, key)
}

func (s *ServiceImpl) outstandingFor(ctx context.Context, tenantID snowflake.ID, key *ledgerdomain.TenantKey) (*domain.OutstandingBalance, error) {
	if key.Unit == nil || key.UsedAt == nil {
		return nil, ledgerdomain.ErrNoActiveUnit
	}

	months := monthsBilled(*key.UsedAt, s.clock.Now())
	billed := key.Unit.RentAmount.Mul(decimal.NewFromInt(int64(months)))

	paid, err := s.payments.SumCompletedByTenant(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}

	outstanding := billed.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &domain.OutstandingBalance{
		TenantID:     tenantID,
		MonthlyRent:  key.Unit.RentAmount,
		MonthsBilled: months,
		TotalBilled:  billed,
		TotalPaid:    paid,
		Outstanding:  outstanding,
	}, nil
}

// failInitiation closes out a payment whose checkout never opened.
// Logged, not returned: the caller already has the gateway error.
func (s *ServiceImpl) failInitiation(ctx context.Context, payment *ledgerdomain.Payment, txn *ledgerdomain.PaymentTransaction) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.payments.MarkFailed(ctx, tx, payment.ID); err != nil {
			return err
		}
		return s.transactions.Resolve(ctx, tx, txn.MerchantOrderID,
			ledgerdomain.TransactionStatusFailed, ledgerdomain.ReconciliationCompleted)
	})
	if err != nil {
		s.logger.Error("failed to close out rejected checkout",
			zap.Int64("payment_id", int64(payment.ID)), zap.Error(err))
	}
}

// monthsBilled counts rent months incurred from move-in through now,
// the current month included.
func monthsBilled(movedIn, now time.Time) int {
	if now.Before(movedIn) {
		return 0
	}
	months := (now.Year()-movedIn.Year())*12 + int(now.Month()) - int(movedIn.Month()) + 1
	if months < 0 {
		return 0
	}
	return months
}

// nextDueDate is the upcoming occurrence of the unit's rent due day,
// clamped to the target month's length.
func nextDueDate(now time.Time, dueDay int) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	year, month := now.Year(), now.Month()
	if now.Day() > dueDay {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	day := dueDay
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
