// Package app wires configuration, logging, the diagnosis backend and the
// optional front ends into one running process.
package app

import (
	"context"
	"fmt"

	"carcare/internal/config"
	"carcare/internal/diagnosis"
	"carcare/internal/domain"
	"carcare/internal/httpx"
	"carcare/internal/integrations/llm"
	slackbot "carcare/internal/integrations/slack"
	"carcare/internal/server"
	"carcare/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewClassifier builds the classifier selected by cfg.DiagnosisBackend. The
// returned rules are the local table (nil for remote backends). It also
// applies cfg's outbound HTTP timeout, so every entry point honors it.
func NewClassifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (diagnosis.Classifier, []domain.DiagnosticRule, error) {
	httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	if cfg.DiagnosisBackend == "" || cfg.DiagnosisBackend == config.BackendRules {
		matcher, err := diagnosis.NewMatcherFromFile(cfg.RulesPath)
		if err != nil {
			return nil, nil, err
		}
		return matcher, matcher.Rules(), nil
	}

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return llm.NewClassifier(provider, cfg.DiagnosisTimeout(), logger), nil, nil
}

type App struct {
	cfg       config.Config
	logger    *zap.Logger
	server    *server.Server
	bot       *slackbot.Bot
	scheduler *telemetry.Scheduler
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	classifier, rules, err := NewClassifier(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	logger.Info("config loaded",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("backend", cfg.DiagnosisBackend),
		zap.String("rules_path", cfg.RulesPath),
		zap.Duration("diagnosis_timeout", cfg.DiagnosisTimeout()),
		zap.Duration("external_http_timeout", httpx.ExternalHTTPClient().Timeout),
		zap.Bool("slack", cfg.SlackConfigured()),
		zap.Bool("telemetry", cfg.TelemetryConfigured()),
		zap.String("timezone", cfg.Timezone))

	a := &App{
		cfg:    cfg,
		logger: logger,
		server: server.New(cfg.HTTPAddr, cfg.DiagnosisBackend, classifier, rules, logger.Named("http")),
	}

	var notifier telemetry.Notifier
	if cfg.SlackConfigured() {
		a.bot = slackbot.New(cfg, slackbot.NewClient(cfg), classifier, logger.Named("slack"))
		if cfg.SlackAlertChannelID != "" {
			notifier = a.bot
		}
	} else {
		logger.Info("slack bot disabled (SLACK_BOT_TOKEN and SLACK_APP_TOKEN not set)")
	}

	a.scheduler, err = telemetry.NewScheduler(cfg, notifier, logger.Named("telemetry"))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Run serves every configured front end until ctx ends or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(ctx) })
	if a.bot != nil {
		g.Go(func() error {
			if err := a.bot.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("slack bot: %w", err)
			}
			return nil
		})
	}
	if a.scheduler != nil {
		g.Go(func() error { return a.scheduler.Run(ctx) })
	}
	a.logger.Info("carcare started")
	return g.Wait()
}
