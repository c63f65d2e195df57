package license

import (
	"github.com/siteassist/insight/internal/license/repository"
	"github.com/siteassist/insight/internal/license/service"
	"go.uber.org/fx"
)

var Module = fx.Module("license.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
