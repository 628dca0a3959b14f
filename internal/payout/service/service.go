package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zeltonlabs/zelton/internal/clock"
	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	"github.com/zeltonlabs/zelton/internal/metrics"
	"github.com/zeltonlabs/zelton/internal/payout/domain"
	"github.com/zeltonlabs/zelton/pkg/money"
)

type ServiceParams struct {
	fx.In

	Payments ledgerdomain.PaymentRepository
	Payouts  ledgerdomain.PayoutRepository
	Owners   ledgerdomain.OwnerRepository
	Gateway  gatewaydomain.PayoutGateway
	GenID    *snowflake.Node
	Clock    clock.Clock
	Logger   *zap.Logger
	DB       *gorm.DB
}

type ServiceImpl struct {
	payments ledgerdomain.PaymentRepository
	payouts  ledgerdomain.PayoutRepository
	owners   ledgerdomain.OwnerRepository
	gateway  gatewaydomain.PayoutGateway
	genID    *snowflake.Node
	clock    clock.Clock
	logger   *zap.Logger
	db       *gorm.DB
}

func NewService(p ServiceParams) domain.Service {
	return &ServiceImpl{
		payments: p.Payments,
		payouts:  p.Payouts,
		owners:   p.Owners,
		gateway:  p.Gateway,
		genID:    p.GenID,
		clock:    p.Clock,
		logger:   p.Logger.Named("payout"),
		db:       p.DB,
	}
}

func (s *ServiceImpl) InitiateForPayment(ctx context.Context, paymentID snowflake.ID) error {
	payment, err := s.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != ledgerdomain.PaymentStatusCompleted {
		return fmt.Errorf("payment %d is %s, payouts require completed", paymentID, payment.Status)
	}
	if payment.Unit == nil || payment.Unit.Property == nil {
		return ledgerdomain.ErrNoActiveUnit
	}
	ownerID := payment.Unit.Property.OwnerID

	owner, err := s.owners.FindByID(ctx, nil, ownerID)
	if err != nil {
		return err
	}
	// Missing payout details is a configuration problem, not a transient
	// failure: no payout row is created, nothing is retried. The payout
	// can be initiated manually once the owner fixes their details.
	if !owner.PayoutDetailsComplete() {
		s.logger.Warn("owner payout details incomplete, payout not created",
			zap.Int64("owner_id", int64(owner.ID)),
			zap.Int64("payment_id", int64(paymentID)))
		return ledgerdomain.ErrPayoutDetailsIncomplete
	}

	existing, err := s.payouts.FindByPaymentID(ctx, nil, paymentID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Info("payout already exists for payment",
			zap.Int64("payment_id", int64(paymentID)),
			zap.Int64("payout_id", int64(existing.ID)),
			zap.String("status", string(existing.Status)))
		return nil
	}

	now := s.clock.Now()
	payout := &ledgerdomain.OwnerPayout{
		ID:        s.genID.Generate(),
		PaymentID: paymentID,
		OwnerID:   owner.ID,
		// The owner receives the base rent; the gateway surcharge stays
		// with the platform.
		Amount:          payment.Amount,
		Status:          ledgerdomain.PayoutStatusPending,
		BeneficiaryType: owner.PayoutMethod,
		MaxRetries:      ledgerdomain.DefaultPayoutMaxRetries,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.payouts.Insert(ctx, nil, payout); err != nil {
		// The unique index on payment_id makes a concurrent initiation
		// lose the insert; the payout is already being handled.
		if again, ferr := s.payouts.FindByPaymentID(ctx, nil, paymentID); ferr == nil && again != nil {
			return nil
		}
		return err
	}

	s.execute(ctx, payout, owner)
	return nil
}

func (s *ServiceImpl) Retry(ctx context.Context, payoutID snowflake.ID) (*ledgerdomain.OwnerPayout, error) {
	payout, err := s.payouts.FindByID(ctx, nil, payoutID)
	if err != nil {
		return nil, err
	}

	switch payout.Status {
	case ledgerdomain.PayoutStatusCompleted, ledgerdomain.PayoutStatusProcessing:
		return nil, ledgerdomain.ErrPayoutNotRetryable
	case ledgerdomain.PayoutStatusFailed:
		if payout.RetriesExhausted() {
			return nil, ledgerdomain.ErrPayoutNotRetryable
		}
	}

	owner, err := s.owners.FindByID(ctx, nil, payout.OwnerID)
	if err != nil {
		return nil, err
	}
	if !owner.PayoutDetailsComplete() {
		return nil, ledgerdomain.ErrPayoutDetailsIncomplete
	}

	s.execute(ctx, payout, owner)
	return payout, nil
}

func (s *ServiceImpl) SyncTransferStatus(ctx context.Context, payoutID snowflake.ID) (*ledgerdomain.OwnerPayout, error) {
	payout, err := s.payouts.FindByID(ctx, nil, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.TransferID == "" || payout.Status.Terminal() {
		return payout, nil
	}

	transfer, err := s.gateway.FetchTransfer(ctx, payout.TransferID)
	if err != nil {
		return nil, err
	}
	s.applyTransferState(ctx, payout, transfer)
	return payout, nil
}

func (s *ServiceImpl) RunDueRetries(ctx context.Context) (int, error) {
	due, err := s.payouts.ListDueRetries(ctx, nil, s.clock.Now())
	if err != nil {
		return 0, err
	}

	attempted := 0
	for i := range due {
		payout := &due[i]
		owner, err := s.owners.FindByID(ctx, nil, payout.OwnerID)
		if err != nil {
			s.logger.Error("retry sweep: owner lookup failed",
				zap.Int64("payout_id", int64(payout.ID)),
				zap.Error(err))
			continue
		}
		if !owner.PayoutDetailsComplete() {
			s.logger.Warn("retry sweep: owner payout details still incomplete",
				zap.Int64("payout_id", int64(payout.ID)),
				zap.Int64("owner_id", int64(owner.ID)))
			continue
		}
		s.execute(ctx, payout, owner)
		attempted++
	}
	return attempted, nil
}

func (s *ServiceImpl) Status(ctx context.Context, paymentID snowflake.ID) (*ledgerdomain.OwnerPayout, error) {
	return s.payouts.FindByPaymentID(ctx, nil, paymentID)
}

// execute runs one transfer attempt for the payout and records the
// outcome. Errors end up on the payout row, not in the return path.
func (s *ServiceImpl) execute(ctx context.Context, payout *ledgerdomain.OwnerPayout, owner *ledgerdomain.Owner) {
	now := s.clock.Now()
	payout.Status = ledgerdomain.PayoutStatusProcessing
	payout.UpdatedAt = now
	if err := s.payouts.Update(ctx, nil, payout); err != nil {
		s.logger.Error("payout status update failed",
			zap.Int64("payout_id", int64(payout.ID)), zap.Error(err))
		return
	}

	beneficiaryID, err := s.ensureBeneficiary(ctx, owner)
	if err != nil {
		s.scheduleRetry(ctx, payout, fmt.Sprintf("beneficiary setup: %v", err))
		return
	}

	transferMode := "banktransfer"
	if owner.PayoutMethod == ledgerdomain.PayoutMethodUPI {
		transferMode = "upi"
	}

	transferID := fmt.Sprintf("PAYOUT_%d_%d", payout.ID, now.Unix())
	transfer, err := s.gateway.InitiateTransfer(ctx, gatewaydomain.TransferInput{
		TransferID:    transferID,
		BeneficiaryID: beneficiaryID,
		AmountPaise:   money.ToPaise(payout.Amount),
		TransferMode:  transferMode,
		Remarks:       fmt.Sprintf("Rent payout %d", payout.PaymentID),
	})
	if err != nil {
		s.scheduleRetry(ctx, payout, fmt.Sprintf("transfer initiation: %v", err))
		return
	}

	payout.TransferID = transferID
	s.applyTransferState(ctx, payout, transfer)
}

// ensureBeneficiary resolves the owner's gateway beneficiary, creating
// it on first payout. Beneficiary ids are stable per owner.
func (s *ServiceImpl) ensureBeneficiary(ctx context.Context, owner *ledgerdomain.Owner) (string, error) {
	beneficiaryID := fmt.Sprintf("OWNER_%d", owner.ID)

	_, err := s.gateway.FetchBeneficiary(ctx, beneficiaryID)
	if err == nil {
		return beneficiaryID, nil
	}
	if !errors.Is(err, gatewaydomain.ErrBeneficiaryNotFound) {
		return "", err
	}

	b := gatewaydomain.Beneficiary{
		ID:    beneficiaryID,
		Name:  owner.FullName(),
		Email: owner.Email,
		Phone: owner.Phone,
	}
	if owner.PayoutMethod == ledgerdomain.PayoutMethodUPI {
		b.VPA = owner.UPIID
	} else {
		b.AccountNumber = owner.AccountNumber
		b.IFSC = owner.IFSCCode
	}
	if _, err := s.gateway.CreateBeneficiary(ctx, b); err != nil {
		return "", err
	}
	return beneficiaryID, nil
}

func (s *ServiceImpl) applyTransferState(ctx context.Context, payout *ledgerdomain.OwnerPayout, transfer *gatewaydomain.Transfer) {
	now := s.clock.Now()
	payout.UpdatedAt = now
	if len(transfer.RawResponse) > 0 {
		payout.GatewayResponse = datatypes.JSON(transfer.RawResponse)
	}

	switch transfer.State {
	case gatewaydomain.TransferStateCompleted:
		payout.Status = ledgerdomain.PayoutStatusCompleted
		payout.UTR = transfer.UTR
		payout.CompletedAt = &now
		payout.ErrorMessage = ""
		payout.NextRetryAt = nil
		if err := s.payouts.Update(ctx, nil, payout); err != nil {
			s.logger.Error("payout completion update failed",
				zap.Int64("payout_id", int64(payout.ID)), zap.Error(err))
			return
		}
		metrics.PayoutsTotal.WithLabelValues("completed").Inc()
		s.logger.Info("payout completed",
			zap.Int64("payout_id", int64(payout.ID)),
			zap.String("utr", transfer.UTR))
	case gatewaydomain.TransferStateReceived, gatewaydomain.TransferStatePending:
		payout.Status = ledgerdomain.PayoutStatusProcessing
		if err := s.payouts.Update(ctx, nil, payout); err != nil {
			s.logger.Error("payout processing update failed",
				zap.Int64("payout_id", int64(payout.ID)), zap.Error(err))
		}
	default:
		s.scheduleRetry(ctx, payout, fmt.Sprintf("transfer state %s", transfer.State))
	}
}

// scheduleRetry burns one retry. While retries remain the payout goes
// to retry_scheduled with an exponential delay; once all of them have
// been used it is failed permanently and waits for an operator. The
// exhaustion check runs before the increment so every configured retry
// actually gets its scheduled slot.
func (s *ServiceImpl) scheduleRetry(ctx context.Context, payout *ledgerdomain.OwnerPayout, reason string) {
	now := s.clock.Now()
	payout.LastRetryAt = &now
	payout.ErrorMessage = reason
	payout.UpdatedAt = now

	if payout.RetriesExhausted() {
		payout.Status = ledgerdomain.PayoutStatusFailed
		payout.NextRetryAt = nil
		metrics.PayoutsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("payout retries exhausted",
			zap.Int64("payout_id", int64(payout.ID)),
			zap.Int("retry_count", payout.RetryCount),
			zap.String("reason", reason))
	} else {
		payout.RetryCount++
		next := now.Add(Backoff(payout.RetryCount))
		payout.Status = ledgerdomain.PayoutStatusRetryScheduled
		payout.NextRetryAt = &next
		metrics.PayoutsTotal.WithLabelValues("retry_scheduled").Inc()
		s.logger.Warn("payout retry scheduled",
			zap.Int64("payout_id", int64(payout.ID)),
			zap.Int("retry_count", payout.RetryCount),
			zap.Time("next_retry_at", next),
			zap.String("reason", reason))
	}

	if err := s.payouts.Update(ctx, nil, payout); err != nil {
		s.logger.Error("payout retry bookkeeping failed",
			zap.Int64("payout_id", int64(payout.ID)), zap.Error(err))
	}
}
