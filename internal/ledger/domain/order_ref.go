package domain

// OrderRefKind tags the ledger table a merchant order id resolved to.
type OrderRefKind int

const (
	OrderRefNotFound OrderRefKind = iota
	OrderRefRent
	OrderRefOwner
)

// OrderRef is the result of the polymorphic merchant-order-id lookup.
// A merchant order id belongs to exactly one of the two ledgers.
type OrderRef struct {
	Kind         OrderRefKind
	Payment      *Payment
	OwnerPayment *OwnerPayment
}
