package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/mailer"
	"github.com/goliatone/go-accounts/metrics"
	"github.com/goliatone/go-accounts/mongostore"
)

// App holds the collaborators of a running server
type App struct {
	config   *config.Config
	logger   *glog.BaseLogger
	store    accounts.CredentialStore
	repo     accounts.RepositoryManager
	mongo    *mongostore.Store
	tokens   *accounts.TokenService
	notifier *accounts.AsyncNotifier
	registry *prometheus.Registry
	service  *accounts.AccountService
	metrics  *http.Server
}

func newLogger(cfg *config.Config) *glog.BaseLogger {
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("accounts"),
		glog.WithAddSource(cfg.Debug),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

// GetLogger returns a named child logger
func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

// NewApp wires the store, token service, notifier, metrics and service
// described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, lgr *glog.BaseLogger) (*App, error) {
	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		return nil, err
	}

	if err := WithNotifier(app); err != nil {
		app.Close(ctx)
		return nil, err
	}

	if cfg.Auth.PasswordCost > 0 {
		accounts.SetPasswordHashCost(cfg.Auth.PasswordCost)
	}

	app.tokens = accounts.NewTokenServiceFromConfig(cfg, app.GetLogger("accounts:tokens"))
	app.registry = metrics.NewRegistry()

	app.service = accounts.NewAccountService(app.store, app.tokens,
		accounts.WithConfig(cfg),
		accounts.WithPhoneRegion(cfg.Auth.PhoneRegion),
		accounts.WithNotifier(app.notifier),
		accounts.WithActivitySink(accounts.ActivitySinks{
			metrics.NewActivityCounter(app.registry),
			activitymap.LogSink(app.GetLogger("accounts:activity")),
		}),
		accounts.WithLogger(app.GetLogger("accounts:service")),
	)

	if err := app.service.Validate(); err != nil {
		app.Close(ctx)
		return nil, err
	}

	return app, nil
}

// WithPersistence opens the credential store selected by the config
func WithPersistence(ctx context.Context, app *App) error {
	db := app.config.Database

	switch db.Driver {
	case config.DriverMongo:
		store, err := mongostore.Open(ctx, db.DSN, db.Name)
		if err != nil {
			return err
		}
		app.mongo = store
		app.store = store
	default:
		repo, err := accounts.OpenRepositoryManager(db.Driver, db.DSN)
		if err != nil {
			return err
		}

		if err := repo.Validate(); err != nil {
			_ = repo.Close()
			return err
		}

		if err := repo.Migrate(ctx, accounts.MigrateUp); err != nil {
			_ = repo.Close()
			return err
		}

		app.repo = repo
		app.store = repo.Accounts()
	}

	return nil
}

// WithNotifier sends emails through SMTP when a mail host is configured and
// logs them otherwise.
func WithNotifier(app *App) error {
	logger := app.GetLogger("accounts:mail")
	mail := app.config.Mail

	var delivery accounts.Notifier = accounts.LogNotifier{Logger: logger}
	if mail.Host != "" {
		sender := mailer.NewSMTPSender(mail.Host, mail.Port, mail.Username, mail.Password)
		n, err := mailer.NewNotifier(sender, mail.From, mail.FrontendURL)
		if err != nil {
			return err
		}
		delivery = n
	}

	app.notifier = accounts.NewAsyncNotifier(delivery, accounts.WithNotifierLogger(logger))
	return nil
}

// StartMetrics serves the prometheus registry on its own listener. An empty
// address disables it.
func (a *App) StartMetrics() {
	addr := a.config.Server.MetricsAddress
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))

	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger := a.GetLogger("metrics")
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
}

// Close drains pending notifications and releases the store
func (a *App) Close(ctx context.Context) {
	if a.metrics != nil {
		_ = a.metrics.Shutdown(ctx)
	}

	if a.notifier != nil {
		a.notifier.Wait()
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}

	if a.mongo != nil {
		_ = a.mongo.Close(ctx)
	}
}
