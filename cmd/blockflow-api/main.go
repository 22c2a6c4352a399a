package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/blockflow/pkg/autosave"
	"github.com/dukex/blockflow/pkg/cmd"
	"github.com/dukex/blockflow/pkg/log"
	"github.com/dukex/blockflow/pkg/otelhelper"
	"github.com/dukex/blockflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	cmd := &cli.Command{
		Name:                  "blockflow-api",
		Usage:                 "Edit block-tree programs over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file path, file://, postgres://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "schema-catalog",
				Usage:   "YAML file or directory with additional block kinds",
				Sources: cli.EnvVars("SCHEMA_CATALOG"),
			},
			&cli.StringFlag{
				Name:    "autosave-schedule",
				Usage:   "Cron schedule for flushing open documents",
				Value:   autosave.DefaultSchedule,
				Sources: cli.EnvVars("AUTOSAVE_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "history-limit",
				Usage:   "Undo steps kept per open document",
				Value:   services.DefaultHistoryLimit,
				Sources: cli.EnvVars("HISTORY_LIMIT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.FloatFlag{
				Name:    "tracing-sample-ratio",
				Usage:   "Fraction of traces recorded when tracing is enabled",
				Value:   1,
				Sources: cli.EnvVars("TRACING_SAMPLE_RATIO"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Blockflow API")

			registry, err := cmd.NewRegistry(logger, command.String("schema-catalog"))
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracer := otelhelper.NoopTracer()

			if command.Bool("tracing") {
				var shutdown otelhelper.ShutdownFunc

				tracer, shutdown, err = otelhelper.NewTracer(ctx, otelhelper.TracerConfig{
					ServiceName: "blockflow-api",
					SampleRatio: command.Float("tracing-sample-ratio"),
				})
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
					}
				}()
			}

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				services.WithTracer(tracer),
				services.WithHistoryLimit(command.Int("history-limit")),
			)

			return api.Run(ctx, command.Int("port"), command.String("autosave-schedule"))
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("Blockflow API stopped", "error", err)
		os.Exit(1)
	}
}
