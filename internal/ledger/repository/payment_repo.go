package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) handle(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *paymentRepo) Insert(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return r.handle(db).WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) Update(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return r.handle(db).WithContext(ctx).Save(p).Error
}

func (r *paymentRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.handle(db).WithContext(ctx).Preload("Unit").Preload("Unit.Property").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.handle(db).WithContext(ctx).
		Preload("Unit").Preload("Unit.Property").
		First(&p, "merchant_order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) SumCompletedByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.handle(db).WithContext(ctx).
		Model(&domain.Payment{}).
		Select("SUM(amount)").
		Where("tenant_id = ? AND status = ?", tenantID, domain.PaymentStatusCompleted).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *paymentRepo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error) {
	res := r.handle(db).WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentStatusPending).
		Updates(map[string]any{
			"status":       domain.PaymentStatusCompleted,
			"payment_date": paidAt,
			"updated_at":   paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := r.handle(db).WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentStatusPending).
		Update("status", domain.PaymentStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
