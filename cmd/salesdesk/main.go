package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/migration"
	"github.com/smallbiznis/salesdesk/internal/observability"
	"github.com/smallbiznis/salesdesk/internal/server"
	"github.com/smallbiznis/salesdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		// Schema must exist before the services start.
		migration.Module,

		// Config, clock, domain services and the HTTP adapter.
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
