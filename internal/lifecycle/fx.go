package lifecycle

import (
	"go.uber.org/fx"

	"github.com/zeltonlabs/zelton/internal/lifecycle/service"
)

var Module = fx.Module("lifecycle",
	fx.Provide(service.NewService),
)
