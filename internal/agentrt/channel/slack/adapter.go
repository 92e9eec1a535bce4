// Package slack is a thin Bus producer/consumer over slack-go/slack's
// Socket Mode client: incoming channel/DM messages are published as
// InboundMessage, and outbound replies are posted back via
// PostMessageContext. No Block Kit rendering, reactions, or file
// uploads: the adapter only receives a message and publishes it, and
// sends each OutboundMessage back.
package slack

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	agentbus "github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Config configures the Slack adapter.
type Config struct {
	BotToken string // xoxb-...
	AppToken string // xapp-..., required for Socket Mode
	Logger   *slog.Logger
}

// Adapter wires a slack-go socketmode.Client to a Bus.
type Adapter struct {
	cfg          Config
	client       *slack.Client
	socketClient *socketmode.Client
	bus          *agentbus.Bus
	logger       *slog.Logger
	botUserID    string
	stop         chan struct{}
}

// New creates an Adapter. It does not connect until Start is called.
func New(cfg Config, b *agentbus.Bus) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	socketClient := socketmode.New(client)
	return &Adapter{
		cfg:          cfg,
		client:       client,
		socketClient: socketClient,
		bus:          b,
		logger:       cfg.Logger,
		stop:         make(chan struct{}),
	}
}

// Start authenticates, begins the Socket Mode event loop, and starts
// draining the Bus's outbound queue to deliver replies.
func (a *Adapter) Start(ctx context.Context) error {
	auth, err := a.client.AuthTestContext(ctx)
	if err != nil {
		return err
	}
	a.botUserID = auth.UserID

	go a.handleEvents(ctx)
	go func() {
		if err := a.socketClient.RunContext(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("slack: socket mode run failed", "error", err)
		}
	}()
	go a.drainOutbound(ctx)

	a.logger.Info("slack adapter started", "bot_user_id", a.botUserID)
	return nil
}

// Stop stops draining outbound messages. The socket mode loop stops
// when the ctx passed to Start is cancelled.
func (a *Adapter) Stop() {
	close(a.stop)
}

func (a *Adapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-a.stop:
			return
		case <-ctx.Done():
			return
		case evt, ok := <-a.socketClient.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				a.handleEventsAPI(evt)
			case socketmode.EventTypeSlashCommand, socketmode.EventTypeInteractive:
				if evt.Request != nil {
					a.socketClient.Ack(*evt.Request)
				}
			}
		}
	}
}

func (a *Adapter) handleEventsAPI(evt socketmode.Event) {
	apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	if evt.Request != nil {
		a.socketClient.Ack(*evt.Request)
	}
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.BotID != "" || ev.User == a.botUserID {
			return
		}
		a.publishMessage(ev.User, ev.Channel, ev.Text)
	case *slackevents.AppMentionEvent:
		a.publishMessage(ev.User, ev.Channel, ev.Text)
	}
}

func (a *Adapter) publishMessage(user, channel, text string) {
	in := model.InboundMessage{
		Channel:    "slack",
		SenderID:   user,
		ChatID:     channel,
		SessionKey: "slack:" + channel,
		Content:    text,
	}
	if err := a.bus.PublishInbound(context.Background(), in); err != nil {
		a.logger.Warn("slack: publish inbound failed", "error", err)
	}
}

func (a *Adapter) drainOutbound(ctx context.Context) {
	for {
		select {
		case <-a.stop:
			return
		case <-ctx.Done():
			return
		case out, ok := <-a.bus.Outbound():
			if !ok {
				return
			}
			if out.Channel != "slack" {
				continue
			}
			if _, _, err := a.client.PostMessageContext(ctx, out.ChatID, slack.MsgOptionText(out.Content, false)); err != nil {
				a.logger.Warn("slack: send failed", "error", err)
			}
		}
	}
}
