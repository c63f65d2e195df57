package migration

import (
	"github.com/siteassist/insight/internal/config"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	productcatalogdomain "github.com/siteassist/insight/internal/productcatalog/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The SQL migrations are postgres-specific; mysql and sqlite
		// deployments get the schema from the models instead.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&licensedomain.License{},
				&eventlogdomain.ConversationLog{},
				&productcatalogdomain.CustomProduct{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
