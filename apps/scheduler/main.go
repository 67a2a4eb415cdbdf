package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/visalane/visalane/internal/booking"
	"github.com/visalane/visalane/internal/clock"
	"github.com/visalane/visalane/internal/config"
	"github.com/visalane/visalane/internal/dispute"
	"github.com/visalane/visalane/internal/earning"
	"github.com/visalane/visalane/internal/expert"
	"github.com/visalane/visalane/internal/logger"
	"github.com/visalane/visalane/internal/migration"
	"github.com/visalane/visalane/internal/notify"
	"github.com/visalane/visalane/internal/payment"
	"github.com/visalane/visalane/internal/payout"
	"github.com/visalane/visalane/internal/scheduler"
	"github.com/visalane/visalane/internal/sweeplock"
	"github.com/visalane/visalane/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domain services driven by the sweep
		expert.Module,
		earning.Module,
		booking.Module,
		dispute.Module,
		notify.Module,
		payment.Module,
		payout.Module,
		sweeplock.Module,

		// No server module; this binary is the batch worker.
		scheduler.Module,
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
