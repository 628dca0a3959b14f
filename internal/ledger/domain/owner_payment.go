package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OwnerPaymentStatus string

const (
	OwnerPaymentStatusPending   OwnerPaymentStatus = "pending"
	OwnerPaymentStatusCompleted OwnerPaymentStatus = "completed"
	OwnerPaymentStatusFailed    OwnerPaymentStatus = "failed"
	OwnerPaymentStatusCancelled OwnerPaymentStatus = "cancelled"
	OwnerPaymentStatusRefunded  OwnerPaymentStatus = "refunded"
)

type OwnerPaymentType string

const (
	OwnerPaymentTypeSubscription OwnerPaymentType = "subscription"
	OwnerPaymentTypeUpgrade      OwnerPaymentType = "upgrade"
	OwnerPaymentTypeRenewal      OwnerPaymentType = "renewal"
	OwnerPaymentTypeLegacy       OwnerPaymentType = "legacy"
)

// OwnerPayment is the owner-side subscription ledger. It unifies
// gateway-tracked subscription payments and back-filled legacy records
// that predate gateway provenance.
type OwnerPayment struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OwnerID       snowflake.ID  `json:"owner_id" gorm:"not null;index:idx_owner_payments_owner_status"`
	PricingPlanID *snowflake.ID `json:"pricing_plan_id" gorm:"index"`
	PricingPlan   *PricingPlan  `json:"-" gorm:"foreignKey:PricingPlanID"`

	Amount        decimal.Decimal    `json:"amount" gorm:"type:numeric(10,2);not null"`
	PaymentType   OwnerPaymentType   `json:"payment_type" gorm:"type:varchar(20);default:'subscription'"`
	PaymentMethod string             `json:"payment_method" gorm:"type:varchar(20);default:'phonepe'"`
	Status        OwnerPaymentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index:idx_owner_payments_owner_status"`

	PaymentDate *time.Time `json:"payment_date"`
	DueDate     *time.Time `json:"due_date" gorm:"type:date"`

	// Period is chosen at initiation and drives the window length at
	// completion; it is never inferred from the amount afterwards.
	SubscriptionPeriod    SubscriptionPeriod `json:"subscription_period" gorm:"type:varchar(10)"`
	SubscriptionStartDate *time.Time         `json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time         `json:"subscription_end_date"`

	// Unique per gateway order. Legacy back-filled rows carry no order
	// id at all, so the index only covers non-empty values.
	MerchantOrderID      string         `json:"merchant_order_id" gorm:"type:varchar(100);uniqueIndex:idx_owner_payments_merchant_order_id,where:merchant_order_id <> ''"`
	GatewayOrderID       string         `json:"gateway_order_id" gorm:"type:varchar(100)"`
	GatewayTransactionID string         `json:"gateway_transaction_id" gorm:"type:varchar(100)"`
	GatewayResponse      datatypes.JSON `json:"gateway_response" gorm:"type:jsonb"`

	IsLegacyPayment bool   `json:"is_legacy_payment" gorm:"default:false"`
	LegacyNotes     string `json:"legacy_notes" gorm:"type:text"`
	Description     string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (OwnerPayment) TableName() string { return "owner_payments" }
