package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zeltonlabs/zelton/internal/ledger/domain"
)

func newOwnerPaymentTestRepo(t *testing.T) (domain.OwnerPaymentRepository, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PricingPlan{}, &domain.OwnerPayment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewOwnerPaymentRepository(db), node
}

func ownerPaymentRow(node *snowflake.Node, orderID string) *domain.OwnerPayment {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &domain.OwnerPayment{
		ID:              node.Generate(),
		OwnerID:         node.Generate(),
		Amount:          decimal.NewFromInt(2360),
		Status:          domain.OwnerPaymentStatusPending,
		MerchantOrderID: orderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestOwnerPaymentMerchantOrderIDUniqueness(t *testing.T) {
	repo, node := newOwnerPaymentTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, nil, ownerPaymentRow(node, "SUB_1_AAAA0001")))

	dup := ownerPaymentRow(node, "SUB_1_AAAA0001")
	assert.Error(t, repo.Insert(ctx, nil, dup), "duplicate order ids must be rejected")
}

func TestOwnerPaymentAllowsMultipleLegacyRows(t *testing.T) {
	repo, node := newOwnerPaymentTestRepo(t)
	ctx := context.Background()

	// Back-filled legacy payments predate gateway provenance and carry
	// no order id; the uniqueness guard must not apply to them.
	for i := 0; i < 2; i++ {
		row := ownerPaymentRow(node, "")
		row.IsLegacyPayment = true
		require.NoError(t, repo.Insert(ctx, nil, row))
	}
}
