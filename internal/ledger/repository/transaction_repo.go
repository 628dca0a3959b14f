package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) domain.TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) handle(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *transactionRepo) Insert(ctx context.Context, db *gorm.DB, t *domain.PaymentTransaction) error {
	return r.handle(db).WithContext(ctx).Create(t).Error
}

func (r *transactionRepo) Update(ctx context.Context, db *gorm.DB, t *domain.PaymentTransaction) error {
	return r.handle(db).WithContext(ctx).Save(t).Error
}

func (r *transactionRepo) FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.PaymentTransaction, error) {
	var t domain.PaymentTransaction
	err := r.handle(db).WithContext(ctx).First(&t, "merchant_order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) ListReconcilable(ctx context.Context, db *gorm.DB, createdBefore time.Time) ([]domain.PaymentTransaction, error) {
	var txns []domain.PaymentTransaction
	err := r.handle(db).WithContext(ctx).
		Where("status IN ?", []domain.TransactionStatus{
			domain.TransactionStatusInitiated,
			domain.TransactionStatusProcessing,
		}).
		Where("reconciliation_status IN ?", []domain.ReconciliationStatus{
			domain.ReconciliationNotStarted,
			domain.ReconciliationInProgress,
		}).
		Where("created_at < ?", createdBefore).
		Where("merchant_order_id <> ''").
		Order("created_at").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *transactionRepo) RecordAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return r.handle(db).WithContext(ctx).
		Model(&domain.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_attempt_count": gorm.Expr("payment_attempt_count + 1"),
			"reconciliation_status": domain.ReconciliationInProgress,
			"updated_at":            at,
		}).Error
}

// Resolve moves the transaction to a terminal outcome. Rows that are
// already terminal are left untouched so a late opposite-outcome
// delivery cannot rewrite a settled attempt.
func (r *transactionRepo) Resolve(ctx context.Context, db *gorm.DB, orderID string, status domain.TransactionStatus, recon domain.ReconciliationStatus) error {
	return r.handle(db).WithContext(ctx).
		Model(&domain.PaymentTransaction{}).
		Where("merchant_order_id = ?", orderID).
		Where("status IN ?", []domain.TransactionStatus{
			domain.TransactionStatusInitiated,
			domain.TransactionStatusProcessing,
		}).
		Updates(map[string]any{
			"status":                status,
			"reconciliation_status": recon,
		}).Error
}
