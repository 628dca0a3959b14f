package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TransactionStatusInitiated  TransactionStatus = "initiated"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusSuccess    TransactionStatus = "success"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

type ReconciliationStatus string

const (
	ReconciliationNotStarted ReconciliationStatus = "not_started"
	ReconciliationInProgress ReconciliationStatus = "in_progress"
	ReconciliationCompleted  ReconciliationStatus = "completed"
	ReconciliationFailed     ReconciliationStatus = "failed"
)

// PaymentTransaction tracks a single gateway attempt for a Payment and
// carries the reconciliation bookkeeping. Mutated only by the
// reconciliation engine and the webhook ingestor.
type PaymentTransaction struct {
	ID snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`

	MerchantOrderID      string `json:"merchant_order_id" gorm:"type:varchar(100);not null;uniqueIndex"`
	GatewayOrderID       string `json:"gateway_order_id" gorm:"type:varchar(100)"`
	GatewayTransactionID string `json:"gateway_transaction_id" gorm:"type:varchar(100)"`

	Amount   decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Currency string          `json:"currency" gorm:"type:varchar(3);default:'INR'"`

	Status               TransactionStatus    `json:"status" gorm:"type:varchar(20);default:'initiated';index"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status" gorm:"type:varchar(20);default:'not_started';index"`
	PaymentAttemptCount  int                  `json:"payment_attempt_count" gorm:"default:0"`

	PaymentID       *snowflake.ID  `json:"payment_id" gorm:"index"`
	GatewayResponse datatypes.JSON `json:"gateway_response" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;index"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
