package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/siteassist/insight/internal/analytics"
	"github.com/siteassist/insight/internal/auth"
	"github.com/siteassist/insight/internal/clock"
	"github.com/siteassist/insight/internal/config"
	"github.com/siteassist/insight/internal/eventlog"
	"github.com/siteassist/insight/internal/license"
	"github.com/siteassist/insight/internal/logger"
	"github.com/siteassist/insight/internal/migration"
	"github.com/siteassist/insight/internal/productcatalog"
	"github.com/siteassist/insight/internal/ratelimit"
	"github.com/siteassist/insight/internal/server"
	"github.com/siteassist/insight/internal/session"
	"github.com/siteassist/insight/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		license.Module,
		eventlog.Module,
		session.Module,
		analytics.Module,
		productcatalog.Module,
		auth.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
