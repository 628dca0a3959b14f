package ledger

import (
	"github.com/zeltonlabs/zelton/internal/ledger/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger",
	fx.Provide(
		repository.NewPaymentRepository,
		repository.NewTransactionRepository,
		repository.NewOwnerPaymentRepository,
		repository.NewPayoutRepository,
		repository.NewOwnerRepository,
		repository.NewTenantKeyRepository,
		repository.NewPlanRepository,
		repository.NewInvoiceRepository,
		repository.NewOrderResolver,
	),
)
