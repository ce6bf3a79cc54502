package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/redisstore"
	"github.com/jrsteele09/go-auth-client/credentials/sqlitestore"
	"github.com/jrsteele09/go-auth-client/events"
	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog"
)

const redisConnectAttempts = 3

// App is a fully wired session client: store, event publisher and session manager.
type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Store   credentials.Store
	Session *session.Manager

	closers []func() error
}

// New wires config → store → publisher → session.Manager. Extra session options are applied last.
// The session is not restored; call App.Session.RestoreSession once at startup.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, options ...session.ManagerOption) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, closeStore)

	publisher, closePublisher, err := OpenPublisher(cfg, logger)
	if err != nil {
		_ = app.closeAll()
		return nil, err
	}
	app.closers = append(app.closers, closePublisher)

	opts := []session.ManagerOption{
		session.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		session.WithLogger(logger),
		session.WithPublisher(publisher),
		session.WithLogoutTimeout(cfg.GetLogoutTimeout()),
		session.WithRefreshTimeout(cfg.GetRequestTimeout()),
	}
	m, err := session.New(cfg.GetBaseURL(), store, append(opts, options...)...)
	if err != nil {
		_ = app.closeAll()
		return nil, fmt.Errorf("[bootstrap.New] session.New: %w", err)
	}
	app.Session = m

	logger.Debug().
		Str("api", cfg.GetBaseURL()).
		Str("store", cfg.GetStoreDriver()).
		Bool("mqtt", cfg.GetMQTTBroker() != "").
		Msg("session client ready")
	return app, nil
}

// Close waits for the session's background work, then releases the store and publisher.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Session != nil {
		if err := a.Session.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the credential store selected by cfg. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (credentials.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.GetStoreDriver() {
	case config.StoreMemory:
		return credentials.NewMemoryStore(), noop, nil
	case config.StoreFile:
		return credentials.NewFileStore(cfg.GetStorePath()), noop, nil
	case config.StoreSQLite:
		s, err := sqlitestore.Open(cfg.GetStorePath())
		if err != nil {
			return nil, nil, fmt.Errorf("[bootstrap.OpenStore] sqlite: %w", err)
		}
		return s, s.Close, nil
	case config.StoreRedis:
		client, err := redisstore.Connect(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB(), redisConnectAttempts)
		if err != nil {
			return nil, nil, fmt.Errorf("[bootstrap.OpenStore] redis: %w", err)
		}
		return redisstore.New(client, cfg.GetRedisKeyPrefix()), client.Close, nil
	default:
		return nil, nil, apperrors.Wrapf(apperrors.ErrInvalidConfig, "unknown store driver %q", cfg.GetStoreDriver())
	}
}

// OpenPublisher always logs events and also publishes them to MQTT when a broker is configured.
func OpenPublisher(cfg config.EventsConfig, logger zerolog.Logger) (events.Publisher, func() error, error) {
	logPublisher := events.NewLogPublisher(logger)
	if cfg.GetMQTTBroker() == "" {
		return logPublisher, func() error { return nil }, nil
	}

	mqttPublisher, err := events.ConnectMQTT(cfg.GetMQTTBroker(), cfg.GetMQTTClientID(), cfg.GetMQTTTopicPrefix())
	if err != nil {
		return nil, nil, fmt.Errorf("[bootstrap.OpenPublisher] %w", err)
	}
	return events.Multi{logPublisher, mqttPublisher}, mqttPublisher.Close, nil
}
