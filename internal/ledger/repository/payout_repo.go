package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type payoutRepo struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) domain.PayoutRepository {
	return &payoutRepo{db: db}
}

func (r *payoutRepo) handle(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *payoutRepo) Insert(ctx context.Context, db *gorm.DB, p *domain.OwnerPayout) error {
	return r.handle(db).WithContext(ctx).Create(p).Error
}

func (r *payoutRepo) Update(ctx context.Context, db *gorm.DB, p *domain.OwnerPayout) error {
	return r.handle(db).WithContext(ctx).Save(p).Error
}

func (r *payoutRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OwnerPayout, error) {
	var p domain.OwnerPayout
	err := r.handle(db).WithContext(ctx).
		Preload("Payment").Preload("Payment.Unit").
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepo) FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*domain.OwnerPayout, error) {
	var p domain.OwnerPayout
	err := r.handle(db).WithContext(ctx).First(&p, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepo) ListDueRetries(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.OwnerPayout, error) {
	var payouts []domain.OwnerPayout
	err := r.handle(db).WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", domain.PayoutStatusRetryScheduled, now).
		Order("next_retry_at").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
