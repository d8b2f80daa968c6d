package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/coopsuite/copay/internal/activity"
	"github.com/coopsuite/copay/internal/balance"
	"github.com/coopsuite/copay/internal/cache"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/config"
	"github.com/coopsuite/copay/internal/cooperative"
	"github.com/coopsuite/copay/internal/events"
	"github.com/coopsuite/copay/internal/gateway"
	"github.com/coopsuite/copay/internal/locks"
	"github.com/coopsuite/copay/internal/migration"
	"github.com/coopsuite/copay/internal/notification"
	"github.com/coopsuite/copay/internal/observability"
	"github.com/coopsuite/copay/internal/payment"
	"github.com/coopsuite/copay/internal/paymenttype"
	"github.com/coopsuite/copay/internal/scheduler"
	"github.com/coopsuite/copay/internal/server"
	"github.com/coopsuite/copay/pkg/db"
	"github.com/coopsuite/copay/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		events.Module,
		locks.Module,
		cache.Module,

		// Functional domains
		cooperative.Module,
		paymenttype.Module,
		gateway.Module,
		payment.Module,
		balance.Module,
		activity.Module,
		notification.Module,
		scheduler.Module,

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
