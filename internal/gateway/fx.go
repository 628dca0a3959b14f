package gateway

import (
	"go.uber.org/fx"

	"github.com/zeltonlabs/zelton/internal/gateway/cashfree"
	"github.com/zeltonlabs/zelton/internal/gateway/domain"
	"github.com/zeltonlabs/zelton/internal/gateway/phonepe"
)

var Module = fx.Module("gateway",
	fx.Provide(
		fx.Annotate(phonepe.New, fx.As(new(domain.CheckoutGateway))),
		fx.Annotate(cashfree.New, fx.As(new(domain.PayoutGateway))),
	),
)
