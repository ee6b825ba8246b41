package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/authorization"
	"github.com/smallbiznis/dealroster/internal/capability"
	"github.com/smallbiznis/dealroster/internal/clock"
	"github.com/smallbiznis/dealroster/internal/config"
	"github.com/smallbiznis/dealroster/internal/migration"
	"github.com/smallbiznis/dealroster/internal/observability"
	"github.com/smallbiznis/dealroster/internal/opportunity"
	"github.com/smallbiznis/dealroster/internal/organization"
	"github.com/smallbiznis/dealroster/internal/participant"
	"github.com/smallbiznis/dealroster/internal/rosterlock"
	"github.com/smallbiznis/dealroster/internal/server"
	"github.com/smallbiznis/dealroster/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		rosterlock.Module,

		// Functional Domains
		organization.Module,
		opportunity.Module,
		capability.Module,
		authorization.Module,
		participant.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
