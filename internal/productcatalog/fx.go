package productcatalog

import (
	"github.com/siteassist/insight/internal/productcatalog/repository"
	"github.com/siteassist/insight/internal/productcatalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("productcatalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
