// Package slackbot serves symptom diagnosis as a Slack slash command and
// posts telemetry alerts to a channel.
package slackbot

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

const (
	commandDiagnose = "/diagnose"
	commandHelp     = "/car-help"
)

const diagnoseUsage = "Describe what your car is doing, e.g. `/diagnose brakes squealing when I stop`."
const upstreamErrorText = "The diagnosis service is unavailable right now. Please try again in a few minutes."

type Bot struct {
	api            *slack.Client
	classifier     Classifier
	alertChannelID string
	alertMentions  []string
	logger         *zap.Logger
}

func New(cfg Config, api *slack.Client, classifier Classifier, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:            api,
		classifier:     classifier,
		alertChannelID: strings.TrimSpace(cfg.SlackAlertChannelID),
		alertMentions:  cfg.SlackAlertMentions,
		logger:         logger,
	}
}

// NewClient builds the Slack API client used by both the socket-mode loop
// and alert posting.
func NewClient(cfg Config) *slack.Client {
	return slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)
}

// Run connects over Socket Mode and serves commands until ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	client := socketmode.New(b.api)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-client.Events:
				if !ok {
					return
				}
				b.dispatch(ctx, client, evt)
			}
		}
	}()

	b.logger.Info("slack bot connecting via socket mode")
	return client.RunContext(ctx)
}

func (b *Bot) dispatch(ctx context.Context, client *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		b.logger.Info("slack bot connected")
	case socketmode.EventTypeSlashCommand:
		client.Ack(*evt.Request)
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.logger.Info("slash command received",
			zap.String("command", cmd.Command),
			zap.String("user", cmd.UserID),
			zap.String("channel", cmd.ChannelID))
		go b.handleSlashCommand(ctx, cmd)
	case socketmode.EventTypeEventsAPI:
		client.Ack(*evt.Request)
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		go b.handleEventsAPI(ctx, event)
	}
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case commandDiagnose:
		b.handleDiagnose(ctx, cmd)
	case commandHelp:
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID, helpText())
	}
}

func (b *Bot) handleDiagnose(ctx context.Context, cmd slack.SlashCommand) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID, diagnoseUsage)
		return
	}

	result, err := b.classifier.Classify(ctx, text)
	if err != nil {
		b.logger.Warn("slack diagnosis failed", zap.String("user", cmd.UserID), zap.Error(err))
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID, upstreamErrorText)
		return
	}
	b.logger.Info("slack diagnosis",
		zap.String("user", cmd.UserID),
		zap.String("problem", result.PossibleProblem),
		zap.Int("confidence", result.Confidence))

	_, err = b.api.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID,
		slack.MsgOptionText(FormatDiagnosis(text, result), false),
		slack.MsgOptionBlocks(diagnosisBlocks(text, result)...),
	)
	if err != nil {
		b.logger.Warn("post diagnosis failed", zap.String("user", cmd.UserID), zap.Error(err))
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MemberJoinedChannelEvent:
		b.logger.Info("member joined", zap.String("user", ev.User), zap.String("channel", ev.Channel))
		b.postEphemeral(ctx, ev.Channel, ev.User, "Welcome! I'm CarCare, I suggest likely causes for car trouble.\n\n"+helpText())
	}
}

func (b *Bot) postEphemeral(ctx context.Context, channelID, userID, text string) {
	_, err := b.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		b.logger.Warn("post ephemeral failed", zap.String("channel", channelID), zap.Error(err))
	}
}

func helpText() string {
	return "*CarCare commands*\n" +
		"• `/diagnose <symptom>` - describe what the car is doing and get the most likely cause\n" +
		"• `/car-help` - show this message\n\n" +
		"Diagnoses are suggestions, not a substitute for an inspection by a mechanic."
}
