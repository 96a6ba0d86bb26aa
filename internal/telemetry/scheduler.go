package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carcare/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Notifier receives the alerts of a scheduled check. It is only called
// when at least one alert was raised.
type Notifier interface {
	NotifyAlerts(ctx context.Context, alerts []Alert) error
}

type Scheduler struct {
	expr         string
	schedule     cron.Schedule
	snapshotPath string
	location     *time.Location
	notifier     Notifier
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler returns nil when no telemetry check is configured.
func NewScheduler(cfg config.Config, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.TelemetryConfigured() {
		logger.Info("telemetry check disabled (telemetry_check_schedule or telemetry_snapshot_path not set)")
		return nil, nil
	}
	expr := strings.TrimSpace(cfg.TelemetryCheckSchedule)
	sched, err := config.ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid telemetry_check_schedule '%s': %w", expr, err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		expr:         expr,
		schedule:     sched,
		snapshotPath: cfg.TelemetrySnapshotPath,
		location:     loc,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Run blocks, checking the snapshot on every schedule tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("telemetry check scheduled",
		zap.String("cron", s.expr),
		zap.String("snapshot", s.snapshotPath))

	for {
		now := s.now().In(s.location)
		next := s.schedule.Next(now)
		wait := next.Sub(now)
		s.logger.Debug("next telemetry check",
			zap.Time("at", next),
			zap.Duration("in", wait.Round(time.Second)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := s.Check(ctx); err != nil {
			s.logger.Warn("telemetry check failed", zap.Error(err))
		}
	}
}

// Check reads the snapshot once, logs and forwards any alerts.
func (s *Scheduler) Check(ctx context.Context) ([]Alert, error) {
	snap, err := LoadSnapshot(s.snapshotPath)
	if err != nil {
		return nil, err
	}
	alerts := Analyze(snap, s.now().In(s.location))
	critical, warning := CountByLevel(alerts)
	s.logger.Info("telemetry check complete",
		zap.Int("alerts", len(alerts)),
		zap.Int("critical", critical),
		zap.Int("warning", warning))
	for _, a := range alerts {
		s.logger.Warn("telemetry alert",
			zap.String("id", a.ID),
			zap.String("level", string(a.Level)),
			zap.String("component", a.Component),
			zap.String("message", a.Message))
	}

	if len(alerts) == 0 || s.notifier == nil {
		return alerts, nil
	}
	if err := s.notifier.NotifyAlerts(ctx, alerts); err != nil {
		return alerts, fmt.Errorf("notify telemetry alerts: %w", err)
	}
	return alerts, nil
}
