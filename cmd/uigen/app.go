package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jivzik/uigen/internal/account"
	"github.com/jivzik/uigen/internal/anonwork"
	"github.com/jivzik/uigen/internal/anthropic"
	"github.com/jivzik/uigen/internal/auth"
	"github.com/jivzik/uigen/internal/chat"
	"github.com/jivzik/uigen/internal/config"
	"github.com/jivzik/uigen/internal/envfile"
	"github.com/jivzik/uigen/internal/httpapi"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/metrics"
	"github.com/jivzik/uigen/internal/projects"
	"github.com/jivzik/uigen/internal/secrets"
	"github.com/jivzik/uigen/internal/store"
)

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	handler http.Handler
	closers []func() error
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// setup loads .env and config, then opens the rotating log file.
func setup(flags *rootFlags) (*config.Config, logging.FileLogger, error) {
	env := envfile.Load()
	level, err := logging.ParseLevel(flags.logLevel)
	if err != nil {
		return nil, logging.FileLogger{}, err
	}
	loader := config.NewLoader(logging.Nop())
	loader.ExplicitPath = flags.configPath
	cfg, err := loader.Load()
	if err != nil {
		return nil, logging.FileLogger{}, err
	}
	fileLog, err := logging.NewFileLogger(cfg.Storage.DataDir, level, flags.debug)
	if err != nil {
		return nil, logging.FileLogger{}, fmt.Errorf("set up logging: %w", err)
	}
	logger := fileLog.Logger.With("component", "uigen")
	fileLog.Logger = logger
	logger.Info("uigen.logging_enabled", "path", fileLog.Path)
	if env.Loaded {
		logger.Debug("uigen.env_loaded", "path", env.Path, "keys", env.Keys)
	}
	if env.Err != nil {
		logger.Warn("uigen.env_load_failed", "path", env.Path, "error", env.Err.Error())
	}
	return cfg, fileLog, nil
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	m := metrics.New()
	vault := secrets.NewDataDirStore(cfg.Storage.DataDir)

	signingKey := []byte(cfg.Auth.JWTSecret)
	if len(signingKey) == 0 {
		key, err := vault.SessionSigningKey()
		if err != nil {
			return nil, fmt.Errorf("session signing key: %w", err)
		}
		signingKey = key
		logger.Info("uigen.session_key_derived")
	}
	sessions, err := auth.NewManager(signingKey,
		auth.WithTTL(cfg.Auth.SessionTTL),
		auth.WithCookieName(cfg.Auth.CookieName),
		auth.WithSecureCookies(cfg.Auth.SecureCookies),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.store = db
	a.closers = append(a.closers, db.Close)

	agent := buildAgent(cfg, vault, m, logger)

	server := httpapi.New(httpapi.Deps{
		Sessions: sessions,
		Accounts: account.NewService(db, sessions,
			account.WithMinPasswordLength(cfg.Auth.MinPasswordLength),
			account.WithLogger(logger),
		),
		Projects: projects.NewService(db, sessions, logger),
		AnonWork: anonwork.NewStore(cfg.Storage.AnonDir,
			anonwork.WithCookieName(cfg.Auth.AnonCookieName),
			anonwork.WithSecureCookies(cfg.Auth.SecureCookies),
		),
		Agent:        agent,
		Health:       db,
		Metrics:      m,
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	a.handler = server.Handler()
	return a, nil
}

func buildAgent(cfg *config.Config, vault *secrets.Store, m *metrics.Metrics, logger *slog.Logger) *chat.Agent {
	apiKey := cfg.Model.APIKey
	if apiKey == "" {
		stored, err := vault.GetAnthropicKey()
		if err != nil {
			logger.Warn("uigen.stored_key_unreadable", "error", err.Error())
		}
		apiKey = stored
	}
	if apiKey == "" {
		logger.Info("uigen.provider_selected", "provider_id", chat.MockProviderID)
		return chat.NewAgent(chat.NewMockProvider(),
			chat.WithProviderID(chat.MockProviderID),
			chat.WithModelID("mock"),
			chat.WithMaxSteps(cfg.Model.MockMaxSteps),
			chat.WithMetrics(m),
			chat.WithLogger(logger),
		)
	}
	client := anthropic.NewClient(apiKey,
		anthropic.WithBaseURL(cfg.Model.Endpoint),
		anthropic.WithModel(cfg.Model.Name),
		anthropic.WithBlockedHook(func(host string) {
			m.EgressBlocked(host)
			logger.Warn("uigen.egress_blocked", "host", host)
		}),
	)
	logger.Info("uigen.provider_selected", "provider_id", "anthropic", "model_id", client.Model())
	return chat.NewAgent(client,
		chat.WithProviderID("anthropic"),
		chat.WithModelID(client.Model()),
		chat.WithMaxSteps(cfg.Model.MaxSteps),
		chat.WithMaxTokens(cfg.Model.MaxTokens),
		chat.WithMetrics(m),
		chat.WithLogger(logger),
	)
}
