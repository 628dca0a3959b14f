package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type planRepo struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) domain.PlanRepository {
	return &planRepo{db: db}
}

func (r *planRepo) handle(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *planRepo) Insert(ctx context.Context, db *gorm.DB, p *domain.PricingPlan) error {
	return r.handle(db).WithContext(ctx).Create(p).Error
}

func (r *planRepo) FindActiveByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PricingPlan, error) {
	var p domain.PricingPlan
	err := r.handle(db).WithContext(ctx).First(&p, "id = ? AND is_active = ?", id, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.PricingPlan, error) {
	var plans []domain.PricingPlan
	err := r.handle(db).WithContext(ctx).
		Where("is_active = ?", true).
		Order("min_units").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepo) CountByName(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var count int64
	err := r.handle(db).WithContext(ctx).
		Model(&domain.PricingPlan{}).
		Where("name = ?", name).
		Count(&count).Error
	return count, err
}
