package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

type PaymentType string

const (
	PaymentTypeRent        PaymentType = "rent"
	PaymentTypeMaintenance PaymentType = "maintenance"
)

// Payment is a tenant rent charge. Financial record: rows are never
// deleted, failure and cancellation are status values.
type Payment struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	UnitID   snowflake.ID `json:"unit_id" gorm:"not null;index"`
	Unit     *Unit        `json:"-" gorm:"foreignKey:UnitID"`

	// Amount is the base rent portion; GatewayCharge the surcharge the
	// tenant pays on top. Total amount charged = Amount + GatewayCharge.
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	GatewayCharge decimal.Decimal `json:"gateway_charge" gorm:"type:numeric(10,2);not null;default:0"`

	PaymentType PaymentType   `json:"payment_type" gorm:"type:varchar(20);default:'rent'"`
	Status      PaymentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	DueDate     time.Time     `json:"due_date" gorm:"type:date;not null"`
	PaymentDate *time.Time    `json:"payment_date"`

	MerchantOrderID      string         `json:"merchant_order_id" gorm:"type:varchar(100);uniqueIndex"`
	GatewayOrderID       string         `json:"gateway_order_id" gorm:"type:varchar(100)"`
	GatewayTransactionID string         `json:"gateway_transaction_id" gorm:"type:varchar(100)"`
	GatewayResponse      datatypes.JSON `json:"gateway_response" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Total is the full amount presented to the checkout gateway.
func (p *Payment) Total() decimal.Decimal {
	return p.Amount.Add(p.GatewayCharge)
}
