package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PayoutMethod string

const (
	PayoutMethodBank PayoutMethod = "bank"
	PayoutMethodUPI  PayoutMethod = "upi"
)

type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// Owner is a property owner: the party that receives rent payouts and
// pays the platform subscription.
type Owner struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	FirstName string       `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string       `json:"last_name" gorm:"type:varchar(100)"`
	Email     string       `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone     string       `json:"phone" gorm:"type:varchar(15)"`

	// Payout instrument. Bank transfers need all three bank fields,
	// UPI needs only the handle.
	PayoutMethod  PayoutMethod `json:"payout_method" gorm:"type:varchar(10)"`
	BankName      string       `json:"bank_name" gorm:"type:varchar(100)"`
	IFSCCode      string       `json:"ifsc_code" gorm:"type:varchar(11)"`
	AccountNumber string       `json:"account_number" gorm:"type:varchar(20)"`
	UPIID         string       `json:"upi_id" gorm:"type:varchar(100)"`

	SubscriptionPlanID    *snowflake.ID      `json:"subscription_plan_id" gorm:"index"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(20);default:'inactive'"`
	SubscriptionStartDate *time.Time         `json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time         `json:"subscription_end_date"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Owner) TableName() string { return "owners" }

func (o *Owner) FullName() string {
	name := strings.TrimSpace(o.FirstName + " " + o.LastName)
	if name == "" {
		return "Owner"
	}
	return name
}

// PayoutDetailsComplete reports whether the owner can receive transfers.
func (o *Owner) PayoutDetailsComplete() bool {
	switch o.PayoutMethod {
	case PayoutMethodBank:
		return o.BankName != "" && o.IFSCCode != "" && o.AccountNumber != ""
	case PayoutMethodUPI:
		return o.UPIID != ""
	default:
		return false
	}
}

type Property struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OwnerID       snowflake.ID `json:"owner_id" gorm:"not null;index"`
	Name          string       `json:"name" gorm:"type:varchar(255);not null"`
	Address       string       `json:"address" gorm:"type:text"`
	City          string       `json:"city" gorm:"type:varchar(100)"`
	TotalUnits    int          `json:"total_units" gorm:"default:0"`
	OccupiedUnits int          `json:"occupied_units" gorm:"default:0"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Property) TableName() string { return "properties" }

type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusOccupied    UnitStatus = "occupied"
	UnitStatusMaintenance UnitStatus = "maintenance"
)

type Unit struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PropertyID snowflake.ID    `json:"property_id" gorm:"not null;index"`
	Property   *Property       `json:"-" gorm:"foreignKey:PropertyID"`
	UnitNumber string          `json:"unit_number" gorm:"type:varchar(50);not null"`
	UnitType   string          `json:"unit_type" gorm:"type:varchar(50)"`
	RentAmount decimal.Decimal `json:"rent_amount" gorm:"type:numeric(10,2);not null"`
	// Day of month rent falls due, 1-31. Clamped to month length.
	RentDueDay int        `json:"rent_due_day" gorm:"default:1"`
	Status     UnitStatus `json:"status" gorm:"type:varchar(20);default:'available'"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null"`
}

func (Unit) TableName() string { return "units" }

type Tenant struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	FirstName string       `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string       `json:"last_name" gorm:"type:varchar(100)"`
	Email     string       `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone     string       `json:"phone" gorm:"type:varchar(15)"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Tenant) TableName() string { return "tenants" }

// TenantKey ties a tenant to a unit. UsedAt is the move-in date that
// anchors outstanding-balance math.
type TenantKey struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Key        string        `json:"key" gorm:"type:varchar(8);not null;uniqueIndex"`
	PropertyID snowflake.ID  `json:"property_id" gorm:"not null;index"`
	UnitID     snowflake.ID  `json:"unit_id" gorm:"not null;index"`
	Unit       *Unit         `json:"-" gorm:"foreignKey:UnitID"`
	TenantID   *snowflake.ID `json:"tenant_id" gorm:"index"`
	IsUsed     bool          `json:"is_used" gorm:"default:false"`
	UsedAt     *time.Time    `json:"used_at"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null"`
}

func (TenantKey) TableName() string { return "tenant_keys" }
