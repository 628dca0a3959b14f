package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type ownerPaymentRepo struct {
	db *gorm.DB
}

func NewOwnerPaymentRepository(db *gorm.DB) domain.OwnerPaymentRepository {
	return &ownerPaymentRepo{db: db}
}

func (r *ownerPaymentRepo) handle(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *ownerPaymentRepo) Insert(ctx context.Context, db *gorm.DB, p *domain.OwnerPayment) error {
	return r.handle(db).WithContext(ctx).Create(p).Error
}

func (r *ownerPaymentRepo) Update(ctx context.Context, db *gorm.DB, p *domain.OwnerPayment) error {
	return r.handle(db).WithContext(ctx).Save(p).Error
}

func (r *ownerPaymentRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OwnerPayment, error) {
	var p domain.OwnerPayment
	err := r.handle(db).WithContext(ctx).
		Preload("PricingPlan").
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ownerPaymentRepo) FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.OwnerPayment, error) {
	var p domain.OwnerPayment
	err := r.handle(db).WithContext(ctx).
		Preload("PricingPlan").
		First(&p, "merchant_order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ownerPaymentRepo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error) {
	res := r.handle(db).WithContext(ctx).
		Model(&domain.OwnerPayment{}).
		Where("id = ? AND status = ?", id, domain.OwnerPaymentStatusPending).
		Updates(map[string]any{
			"status":       domain.OwnerPaymentStatusCompleted,
			"payment_date": paidAt,
			"updated_at":   paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ownerPaymentRepo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := r.handle(db).WithContext(ctx).
		Model(&domain.OwnerPayment{}).
		Where("id = ? AND status = ?", id, domain.OwnerPaymentStatusPending).
		Update("status", domain.OwnerPaymentStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
