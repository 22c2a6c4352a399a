// Package main provides the Blockflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/blockflow/pkg/autosave"
	"github.com/dukex/blockflow/pkg/eventbus"
	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/dukex/blockflow/pkg/registry"
	"github.com/dukex/blockflow/pkg/services"
	"github.com/dukex/blockflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	eventBus eventbus.EventBus
	editor   *services.Editor
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	opts ...services.Option,
) *API {
	if eventBus != nil {
		opts = append([]services.Option{services.WithEventBus(eventBus)}, opts...)
	}

	return &API{
		logger:   logger,
		registry: registry,
		eventBus: eventBus,
		editor:   services.NewEditor(persistence, registry, logger, opts...),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.editor, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Blockflow API")
	})

	handlers.Register(app)

	return app
}

// Run serves the API on port until ctx is cancelled, autosaving open documents on schedule.
// On shutdown every open document is saved.
func (a *API) Run(ctx context.Context, port int, schedule string) error {
	saver, err := autosave.New(a.editor, schedule, a.logger)
	if err != nil {
		return err
	}

	if err := a.logEvents(ctx); err != nil {
		return err
	}

	if err := saver.Start(ctx); err != nil {
		return err
	}

	app := a.App()
	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "Blockflow API listening", "port", port)

	select {
	case err = <-errCh:
		err = fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
		a.logger.Info("Shutting down Blockflow API")
		err = app.Shutdown()
	}

	shutdownCtx := context.WithoutCancel(ctx)

	return errors.Join(err, saver.Stop(shutdownCtx), a.editor.CloseAll(shutdownCtx))
}

// logEvents subscribes to document events and records them in the log.
func (a *API) logEvents(ctx context.Context) error {
	if a.eventBus == nil {
		return nil
	}

	err := eventbus.HandleAll(a.eventBus, func(ctx context.Context, event any) error {
		if typed, ok := event.(eventbus.Event); ok {
			a.logger.DebugContext(ctx, "Document event", "event_type", typed.GetType(), "event", event)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}
