package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-accounts"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lgr := newLogger(cfg)
	if cfg.Debug {
		fmt.Fprintln(cmd.OutOrStdout(), print.MaybeHighlightJSON(cfg.Redacted()))
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, lgr)
	if err != nil {
		return err
	}

	srv := NewHTTPServer(app)
	app.StartMetrics()

	logger := app.GetLogger("server")
	go func() {
		if err := srv.Serve(cfg.Server.Address); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("accounts server started", "address", cfg.Server.Address, "prefix", cfg.Routes.Prefix)

	sig := WaitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	app.Close(shutdownCtx)
	return nil
}

// NewHTTPServer mounts the account routes on a fiber server
func NewHTTPServer(app *App) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:          true,
			DisableStartupMessage: true,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	session := accounts.SessionMiddleware(app.service, app.tokens, app.config)
	controller := accounts.NewAccountController(app.service, session,
		accounts.WithControllerLogger(app.GetLogger("accounts:ctrl")),
		accounts.WithControllerDebug(app.config.Debug),
	)

	controller.RegisterRoutes(srv.Router().Group(app.config.Routes.Prefix))

	return srv
}

// WaitExitSignal blocks until the process is asked to stop
func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
