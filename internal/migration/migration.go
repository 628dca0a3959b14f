// Package migration owns the database schema.
package migration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
)

// Entities lists every table in migration order: referenced tables
// before the tables that point at them.
func Entities() []any {
	return []any{
		&ledgerdomain.PricingPlan{},
		&ledgerdomain.Owner{},
		&ledgerdomain.Property{},
		&ledgerdomain.Unit{},
		&ledgerdomain.Tenant{},
		&ledgerdomain.TenantKey{},
		&ledgerdomain.Payment{},
		&ledgerdomain.OwnerPayment{},
		&ledgerdomain.PaymentTransaction{},
		&ledgerdomain.OwnerPayout{},
		&ledgerdomain.Invoice{},
	}
}

// RunMigrations migrates the schema under a postgres advisory lock so
// concurrent deploys cannot race each other.
func RunMigrations(gdb *gorm.DB, log *zap.Logger) error {
	if gdb == nil {
		return errors.New("migration database handle is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}

	unlock, err := acquireAdvisoryLock(ctx, sqlDB)
	if err != nil {
		return err
	}
	defer func() {
		_ = unlock(context.Background())
	}()

	log.Info("running migrations")
	if err := gdb.WithContext(ctx).AutoMigrate(Entities()...); err != nil {
		return err
	}
	log.Info("migrations complete")
	return nil
}
