// Package discord is a thin Bus producer/consumer over discordgo:
// incoming messages are published as InboundMessage, and outbound
// replies read from the Bus are sent back via the session. No
// embeds, reactions, or threads — the adapter only receives a
// message and publishes it, and sends each OutboundMessage back.
package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Config configures the Discord adapter.
type Config struct {
	Token  string
	Logger *slog.Logger
}

// Adapter wires a discordgo.Session to a Bus.
type Adapter struct {
	cfg     Config
	session *discordgo.Session
	bus     *bus.Bus
	logger  *slog.Logger
	stop    chan struct{}
}

// New creates an Adapter. It does not connect until Start is called.
func New(cfg Config, b *bus.Bus) (*Adapter, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, session: session, bus: b, logger: cfg.Logger, stop: make(chan struct{})}, nil
}

// Start opens the Discord session, registers the inbound handler, and
// begins draining the Bus's outbound queue to deliver replies.
func (a *Adapter) Start(ctx context.Context) error {
	a.session.AddHandler(a.handleMessageCreate)
	if err := a.session.Open(); err != nil {
		return err
	}
	go a.drainOutbound(ctx)
	a.logger.Info("discord adapter started")
	return nil
}

// Stop closes the Discord session and stops draining outbound messages.
func (a *Adapter) Stop() error {
	close(a.stop)
	return a.session.Close()
}

func (a *Adapter) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && m.Author.Bot {
		return
	}
	in := model.InboundMessage{
		Channel:    "discord",
		SenderID:   m.Author.ID,
		ChatID:     m.ChannelID,
		SessionKey: "discord:" + m.ChannelID,
		Content:    m.Content,
	}
	if err := a.bus.PublishInbound(context.Background(), in); err != nil {
		a.logger.Warn("discord: publish inbound failed", "error", err)
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
			if out.Channel != "discord" {
				continue
			}
			if _, err := a.session.ChannelMessageSend(out.ChatID, out.Content); err != nil {
				a.logger.Warn("discord: send failed", "error", err)
			}
		}
	}
}
