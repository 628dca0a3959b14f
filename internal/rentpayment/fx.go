package rentpayment

import (
	"go.uber.org/fx"

	"github.com/zeltonlabs/zelton/internal/rentpayment/service"
)

var Module = fx.Module("rentpayment",
	fx.Provide(service.NewService),
)
