package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type ownerRepo struct {
	db *gorm.DB
}

func NewOwnerRepository(db *gorm.DB) domain.OwnerRepository {
	return &ownerRepo{db: db}
}

func (r *ownerRepo) handle(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *ownerRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Owner, error) {
	var o domain.Owner
	err := r.handle(db).WithContext(ctx).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ownerRepo) Update(ctx context.Context, db *gorm.DB, o *domain.Owner) error {
	return r.handle(db).WithContext(ctx).Save(o).Error
}

func (r *ownerRepo) RecountUnits(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int, error) {
	h := r.handle(db).WithContext(ctx)

	// Refresh the denormalized counters on the owner's properties from
	// the units table. Counters move only on these explicit calls.
	err := h.Model(&domain.Property{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]any{
			"total_units": gorm.Expr(
				"(SELECT COUNT(*) FROM units WHERE units.property_id = properties.id)"),
			"occupied_units": gorm.Expr(
				"(SELECT COUNT(*) FROM units WHERE units.property_id = properties.id AND units.status = ?)",
				domain.UnitStatusOccupied),
		}).Error
	if err != nil {
		return 0, err
	}

	var count int64
	err = h.Model(&domain.Unit{}).
		Joins("JOIN properties ON properties.id = units.property_id").
		Where("properties.owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *ownerRepo) ListExpired(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Owner, error) {
	var owners []domain.Owner
	err := r.handle(db).WithContext(ctx).
		Where("subscription_status = ? AND subscription_end_date < ?", domain.SubscriptionStatusActive, now).
		Find(&owners).Error
	if err != nil {
		return nil, err
	}
	return owners, nil
}

type tenantKeyRepo struct {
	db *gorm.DB
}

func NewTenantKeyRepository(db *gorm.DB) domain.TenantKeyRepository {
	return &tenantKeyRepo{db: db}
}

func (r *tenantKeyRepo) FindActiveByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.TenantKey, error) {
	if db == nil {
		db = r.db
	}
	var key domain.TenantKey
	err := db.WithContext(ctx).
		Preload("Unit").Preload("Unit.Property").
		First(&key, "tenant_id = ? AND is_used = ?", tenantID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoActiveUnit
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}
