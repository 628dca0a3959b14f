package domain

import (
	"context"
	"errors"
)

// Transfer states reported by the payout gateway.
const (
	TransferStateReceived  = "RECEIVED"
	TransferStatePending   = "PENDING"
	TransferStateCompleted = "COMPLETED"
	TransferStateFailed    = "FAILED"
	TransferStateRejected  = "REJECTED"
	TransferStateReversed  = "REVERSED"
)

var ErrBeneficiaryNotFound = errors.New("beneficiary_not_found")

// Beneficiary is a payout destination registered with the gateway.
// Exactly one of the bank or vpa instrument groups is populated.
type Beneficiary struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	AccountNumber string
	IFSC          string
	VPA           string
}

type TransferInput struct {
	TransferID    string
	BeneficiaryID string
	AmountPaise   int64
	TransferMode  string // banktransfer or upi
	Remarks       string
}

type Transfer struct {
	TransferID  string
	ReferenceID string
	State       string
	UTR         string
	RawResponse []byte
}

// PayoutGateway is the owner-disbursement port.
type PayoutGateway interface {
	FetchBeneficiary(ctx context.Context, beneficiaryID string) (*Beneficiary, error)
	CreateBeneficiary(ctx context.Context, b Beneficiary) (*Beneficiary, error)
	InitiateTransfer(ctx context.Context, in TransferInput) (*Transfer, error)
	FetchTransfer(ctx context.Context, transferID string) (*Transfer, error)
}
