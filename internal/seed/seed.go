// Package seed populates the pricing plan catalog.
package seed

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
)

type planSpec struct {
	name         string
	minUnits     int
	maxUnits     int
	monthlyPrice string
	yearlyPrice  string
	features     []string
}

// The production catalog. maxUnits on the top tier is effectively
// unbounded.
var planCatalog = []planSpec{
	{"Starter Plan", 1, 20, "2000.00", "22000.00", []string{
		"Up to 20 properties", "Basic property management", "Tenant management",
		"Payment tracking", "Email support"}},
	{"Growth Plan", 21, 40, "4000.00", "44000.00", []string{
		"Up to 40 properties", "Advanced property management", "Tenant management",
		"Payment tracking", "Analytics dashboard", "Priority support"}},
	{"Business Plan", 41, 60, "6000.00", "66000.00", []string{
		"Up to 60 properties", "Advanced property management", "Tenant management",
		"Payment tracking", "Analytics dashboard", "Automated reports", "Priority support"}},
	{"Enterprise Plan", 61, 80, "8000.00", "88000.00", []string{
		"Up to 80 properties", "Advanced property management", "Tenant management",
		"Payment tracking", "Analytics dashboard", "Automated reports", "API access",
		"Priority support"}},
	{"Professional Plan", 81, 100, "10000.00", "110000.00", []string{
		"Up to 100 properties", "Advanced property management", "Tenant management",
		"Payment tracking", "Analytics dashboard", "Automated reports", "API access",
		"Custom integrations", "Priority support"}},
	{"Premium Plan", 101, 120, "12000.00", "132000.00", []string{
		"Up to 120 properties", "Advanced property management", "Tenant management",
		"Payment tracking", "Analytics dashboard", "Automated reports", "API access",
		"Custom integrations", "Dedicated account manager", "Priority support"}},
	{"Ultimate Plan", 121, 999999, "14000.00", "154000.00", []string{
		"Unlimited properties", "Advanced property management", "Tenant management",
		"Payment tracking", "Analytics dashboard", "Automated reports", "API access",
		"Custom integrations", "Dedicated account manager", "White-label options",
		"Priority support"}},
}

// PricingPlans inserts any catalog plan not already present, keyed by
// name. Existing plans are left untouched, so re-running is safe.
func PricingPlans(ctx context.Context, plans ledgerdomain.PlanRepository, genID *snowflake.Node, log *zap.Logger) (int, error) {
	created := 0
	for _, spec := range planCatalog {
		count, err := plans.CountByName(ctx, nil, spec.name)
		if err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}

		features, err := json.Marshal(spec.features)
		if err != nil {
			return created, err
		}

		plan := &ledgerdomain.PricingPlan{
			ID:           genID.Generate(),
			Name:         spec.name,
			MinUnits:     spec.minUnits,
			MaxUnits:     spec.maxUnits,
			MonthlyPrice: decimal.RequireFromString(spec.monthlyPrice),
			YearlyPrice:  decimal.RequireFromString(spec.yearlyPrice),
			Features:     datatypes.JSON(features),
			IsActive:     true,
		}
		if err := plans.Insert(ctx, nil, plan); err != nil {
			return created, err
		}
		log.Info("pricing plan seeded", zap.String("name", spec.name))
		created++
	}
	return created, nil
}

var Module = fx.Module("seed",
	fx.Invoke(func(plans ledgerdomain.PlanRepository, genID *snowflake.Node, log *zap.Logger) error {
		created, err := PricingPlans(context.Background(), plans, genID, log.Named("seed"))
		if err != nil {
			return err
		}
		log.Info("seed complete", zap.Int("plans_created", created))
		return nil
	}),
)
