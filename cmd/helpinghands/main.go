package main

import (
	"github.com/bwmarrin/snowflake"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/MowahidLatif/helping-hands-backend/internal/audit"
	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
	"github.com/MowahidLatif/helping-hands-backend/internal/campaign"
	"github.com/MowahidLatif/helping-hands-backend/internal/clock"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	"github.com/MowahidLatif/helping-hands-backend/internal/donation"
	"github.com/MowahidLatif/helping-hands-backend/internal/events"
	"github.com/MowahidLatif/helping-hands-backend/internal/eventstore"
	"github.com/MowahidLatif/helping-hands-backend/internal/giveaway"
	"github.com/MowahidLatif/helping-hands-backend/internal/migration"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/logger"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/tracing"
	"github.com/MowahidLatif/helping-hands-backend/internal/realtime"
	"github.com/MowahidLatif/helping-hands-backend/internal/receipts"
	"github.com/MowahidLatif/helping-hands-backend/internal/seed"
	"github.com/MowahidLatif/helping-hands-backend/internal/server"
	"github.com/MowahidLatif/helping-hands-backend/internal/webhook"
	"github.com/MowahidLatif/helping-hands-backend/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,

		fx.Provide(func(cfg config.Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.TracingEnabled,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.TracingEndpoint,
				ExporterProtocol: cfg.TracingProtocol,
				SamplingRatio:    cfg.TracingSamplingRatio,
			}
		}),
		fx.Provide(tracing.NewProvider),
		fx.Invoke(func(*sdktrace.TracerProvider) {}),

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.SeedDemoData {
				return seed.EnsureDemoData(conn)
			}
			return seed.EnsureMainOrg(conn)
		}),

		events.Module,
		eventstore.Module,
		donation.Module,
		campaign.Module,
		authorization.Module,
		audit.Module,
		realtime.Module,
		webhook.Module,
		giveaway.Module,
		receipts.Module,
		server.Module,
	)
	app.Run()
}
