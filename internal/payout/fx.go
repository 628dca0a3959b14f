package payout

import (
	"go.uber.org/fx"

	lifecycledomain "github.com/zeltonlabs/zelton/internal/lifecycle/domain"
	"github.com/zeltonlabs/zelton/internal/payout/domain"
	"github.com/zeltonlabs/zelton/internal/payout/service"
)

var Module = fx.Module("payout",
	fx.Provide(
		service.NewService,
		func(s domain.Service) lifecycledomain.PayoutInitiator { return s },
	),
)
