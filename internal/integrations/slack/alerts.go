package slackbot

import (
	"context"
	"fmt"

	"carcare/internal/telemetry"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// NotifyAlerts posts telemetry alerts to the configured alert channel. It is
// a no-op when no channel is configured. Mentions are resolved only for
// critical alerts.
func (b *Bot) NotifyAlerts(ctx context.Context, alerts []Alert) error {
	if b.alertChannelID == "" || len(alerts) == 0 {
		return nil
	}

	var mentionIDs []string
	if critical, _ := telemetry.CountByLevel(alerts); critical > 0 && len(b.alertMentions) > 0 {
		ids, _, err := resolveMentions(ctx, b.api, b.logger, b.alertMentions)
		if err != nil {
			b.logger.Warn("alert mentions partially resolved", zap.Error(err))
		}
		mentionIDs = ids
	}

	_, _, err := b.api.PostMessageContext(ctx, b.alertChannelID,
		slack.MsgOptionText(FormatAlerts(alerts, mentionIDs), false))
	if err != nil {
		return fmt.Errorf("post alerts to %s: %w", b.alertChannelID, err)
	}
	b.logger.Info("telemetry alerts posted", zap.String("channel", b.alertChannelID), zap.Int("alerts", len(alerts)))
	return nil
}
