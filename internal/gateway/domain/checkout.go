package domain

import (
	"context"
	"errors"
	"time"
)

// Order states reported by the checkout gateway.
const (
	OrderStatePending   = "PENDING"
	OrderStateCompleted = "COMPLETED"
	OrderStateFailed    = "FAILED"
)

// Callback types delivered by the checkout gateway's webhook.
const (
	CallbackCheckoutCompleted = "CHECKOUT_ORDER_COMPLETED"
	CallbackCheckoutFailed    = "CHECKOUT_ORDER_FAILED"
	CallbackRefundCompleted   = "PG_REFUND_COMPLETED"
	CallbackRefundFailed      = "PG_REFUND_FAILED"
)

var (
	// ErrRateLimited and ErrGatewayTimeout are the only transient
	// conditions retried inside the status-query path.
	ErrRateLimited      = errors.New("gateway_rate_limited")
	ErrGatewayTimeout   = errors.New("gateway_timeout")
	ErrInvalidCallback  = errors.New("invalid_callback_signature")
	ErrCheckoutRejected = errors.New("checkout_rejected")
)

// CreateCheckoutInput carries everything the gateway needs for a hosted
// checkout session. AmountPaise is in the smallest currency unit.
type CreateCheckoutInput struct {
	MerchantOrderID string
	AmountPaise     int64
	RedirectURL     string
	ExpireAfter     time.Duration
	Metadata        map[string]string
}

type CheckoutSession struct {
	MerchantOrderID string
	OrderID         string
	RedirectURL     string
	ExpireAt        time.Time
	State           string
}

type OrderStatus struct {
	State          string
	AmountPaise    int64
	OrderID        string
	TransactionID  string
	PaymentDetails []byte // raw gateway payload, persisted verbatim
}

type RefundResult struct {
	MerchantRefundID string
	RefundID         string
	State            string
	AmountPaise      int64
}

// Callback is a validated webhook notification.
type Callback struct {
	Type            string
	MerchantOrderID string
	State           string
	RawData         []byte
}

// CheckoutGateway is the tenant-facing payment gateway port.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, in CreateCheckoutInput) (*CheckoutSession, error)
	GetOrderStatus(ctx context.Context, merchantOrderID string) (*OrderStatus, error)
	CreateRefund(ctx context.Context, merchantRefundID, originalOrderID string, amountPaise int64) (*RefundResult, error)
	// ValidateCallback authenticates a webhook delivery with the
	// configured credentials against the Authorization header and raw
	// body, returning the parsed callback on success.
	ValidateCallback(username, password, authHeader string, body []byte) (*Callback, error)
}
