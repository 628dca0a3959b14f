package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	ledgerdomain "github.com/zeltonlabs/zelton/internal/ledger/domain"
	"github.com/zeltonlabs/zelton/internal/ledger/repository"
)

func TestPricingPlansIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.PricingPlan{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	plans := repository.NewPlanRepository(db)
	ctx := context.Background()

	created, err := PricingPlans(ctx, plans, node, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(planCatalog), created)

	// Second run finds everything in place.
	created, err = PricingPlans(ctx, plans, node, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	active, err := plans.ListActive(ctx, nil)
	require.NoError(t, err)
	require.Len(t, active, len(planCatalog))

	assert.Equal(t, "Starter Plan", active[0].Name)
	assert.Equal(t, 1, active[0].MinUnits)
	assert.Equal(t, 20, active[0].MaxUnits)
	assert.True(t, active[0].MonthlyPrice.Equal(decimal.RequireFromString("2000.00")))

	last := active[len(active)-1]
	assert.Equal(t, "Ultimate Plan", last.Name)
	assert.Equal(t, 999999, last.MaxUnits)
}
