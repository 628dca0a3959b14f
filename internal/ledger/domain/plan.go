package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SubscriptionPeriod string

const (
	PeriodMonthly SubscriptionPeriod = "monthly"
	PeriodYearly  SubscriptionPeriod = "yearly"
)

// PricingPlan is a subscription tier banded by unit count.
type PricingPlan struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name         string          `json:"name" gorm:"type:varchar(100);not null"`
	MinUnits     int             `json:"min_units" gorm:"not null"`
	MaxUnits     int             `json:"max_units" gorm:"not null"`
	MonthlyPrice decimal.Decimal `json:"monthly_price" gorm:"type:numeric(10,2);not null"`
	YearlyPrice  decimal.Decimal `json:"yearly_price" gorm:"type:numeric(10,2);not null"`
	Features     datatypes.JSON  `json:"features" gorm:"type:jsonb"`
	IsActive     bool            `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
}

func (PricingPlan) TableName() string { return "pricing_plans" }

// PriceFor returns the plan price for the chosen billing period.
func (p *PricingPlan) PriceFor(period SubscriptionPeriod) decimal.Decimal {
	if period == PeriodYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// WindowFor returns the subscription window length for the period.
func (p *PricingPlan) WindowFor(period SubscriptionPeriod) time.Duration {
	if period == PeriodYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}
