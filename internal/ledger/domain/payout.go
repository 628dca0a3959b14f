package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PayoutStatus string

const (
	PayoutStatusPending        PayoutStatus = "pending"
	PayoutStatusProcessing     PayoutStatus = "processing"
	PayoutStatusCompleted      PayoutStatus = "completed"
	PayoutStatusFailed         PayoutStatus = "failed"
	PayoutStatusRetryScheduled PayoutStatus = "retry_scheduled"
)

const DefaultPayoutMaxRetries = 3

// Terminal reports whether the payout needs no further gateway polling.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

// OwnerPayout is the disbursement of a completed rent Payment to its
// owner. The unique index on PaymentID is the storage-level guard that
// at most one payout ever exists per payment. Amount mirrors the base
// rent; the gateway surcharge stays with the platform.
type OwnerPayout struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PaymentID snowflake.ID `json:"payment_id" gorm:"not null;uniqueIndex"`
	Payment   *Payment     `json:"-" gorm:"foreignKey:PaymentID"`
	OwnerID   snowflake.ID `json:"owner_id" gorm:"not null;index"`

	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Status          PayoutStatus    `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	BeneficiaryType PayoutMethod    `json:"beneficiary_type" gorm:"type:varchar(10)"`

	TransferID      string         `json:"transfer_id" gorm:"type:varchar(100)"`
	UTR             string         `json:"utr" gorm:"type:varchar(50)"`
	GatewayResponse datatypes.JSON `json:"gateway_response" gorm:"type:jsonb"`
	ErrorMessage    string         `json:"error_message" gorm:"type:text"`

	RetryCount  int        `json:"retry_count" gorm:"default:0"`
	MaxRetries  int        `json:"max_retries" gorm:"default:3"`
	NextRetryAt *time.Time `json:"next_retry_at" gorm:"index"`
	LastRetryAt *time.Time `json:"last_retry_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (OwnerPayout) TableName() string { return "owner_payouts" }

// RetriesExhausted reports whether the payout has burned all scheduled
// retries and needs operator intervention.
func (p *OwnerPayout) RetriesExhausted() bool {
	return p.RetryCount >= p.MaxRetries
}
