// Package money provides fixed-point currency arithmetic for the ledger.
// All amounts are INR with two fractional digits, rounded half-up.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid_amount")

var (
	surchargeThreshold = decimal.NewFromInt(10000)
	lowSurchargeRate   = decimal.RequireFromString("0.02")
	highSurchargeRate  = decimal.RequireFromString("0.025")
	gstRate            = decimal.RequireFromString("0.18")
	paisePerRupee      = decimal.NewFromInt(100)
)

// Parse validates a client-supplied amount string. Amounts must be
// positive and carry at most two fractional digits.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return Validate(d)
}

// Validate rejects non-positive amounts and amounts with sub-paise precision.
func Validate(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// GatewayCharge returns the surcharge added on top of a rent amount to
// cover checkout processing cost: 2.00% up to 10,000, 2.50% above.
func GatewayCharge(base decimal.Decimal) (decimal.Decimal, error) {
	base, err := Validate(base)
	if err != nil {
		return decimal.Zero, err
	}
	rate := lowSurchargeRate
	if base.GreaterThan(surchargeThreshold) {
		rate = highSurchargeRate
	}
	return base.Mul(rate).Round(2), nil
}

// TotalPayable returns base plus gateway surcharge.
func TotalPayable(base decimal.Decimal) (total, charge decimal.Decimal, err error) {
	charge, err = GatewayCharge(base)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return base.Add(charge), charge, nil
}

// GST returns the 18% tax applied to subscription plan prices.
func GST(base decimal.Decimal) decimal.Decimal {
	return base.Mul(gstRate).Round(2)
}

// WithGST returns base plus 18% GST.
func WithGST(base decimal.Decimal) decimal.Decimal {
	return base.Add(GST(base))
}

// ToPaise converts a rupee amount to the smallest currency unit for
// gateway calls.
func ToPaise(d decimal.Decimal) int64 {
	return d.Mul(paisePerRupee).Round(0).IntPart()
}

// FromPaise converts a gateway minor-unit amount back to rupees.
func FromPaise(p int64) decimal.Decimal {
	return decimal.NewFromInt(p).Div(paisePerRupee)
}
