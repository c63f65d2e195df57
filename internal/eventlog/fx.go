package eventlog

import (
	"github.com/siteassist/insight/internal/eventlog/repository"
	"github.com/siteassist/insight/internal/eventlog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("eventlog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
