package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice is generated when a rent payment completes.
type Invoice struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID      snowflake.ID    `json:"tenant_id" gorm:"not null;index"`
	UnitID        snowflake.ID    `json:"unit_id" gorm:"not null;index"`
	PaymentID     *snowflake.ID   `json:"payment_id" gorm:"uniqueIndex"`
	InvoiceNumber string          `json:"invoice_number" gorm:"type:varchar(50);not null;uniqueIndex"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	RentAmount    decimal.Decimal `json:"rent_amount" gorm:"type:numeric(10,2);not null"`
	DueDate       time.Time       `json:"due_date" gorm:"type:date;not null"`
	Status        InvoiceStatus   `json:"status" gorm:"type:varchar(20);default:'draft'"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

const invoiceSuffixChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewInvoiceNumber builds a human-readable invoice number with a
// millisecond timestamp and a random suffix. Uniqueness is enforced by
// the database index; collisions surface as insert errors.
func NewInvoiceNumber(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = invoiceSuffixChars[rand.Intn(len(invoiceSuffixChars))]
	}
	return fmt.Sprintf("INV-%s%03d-%s", now.Format("20060102150405"), now.Nanosecond()/1e6, string(suffix))
}
