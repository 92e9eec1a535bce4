// Package telegram is a thin Bus producer/consumer over
// go-telegram/bot: incoming text messages are published as
// InboundMessage, and outbound replies are sent via bot.SendMessage.
// No webhook mode, no reconnect backoff, no attachments.
package telegram

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	agentbus "github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Config configures the Telegram adapter.
type Config struct {
	Token  string
	Logger *slog.Logger
}

// Adapter wires a go-telegram/bot.Bot to a Bus.
type Adapter struct {
	cfg    Config
	b      *bot.Bot
	bus    *agentbus.Bus
	logger *slog.Logger
	stop   chan struct{}
}

// New creates an Adapter, constructing the underlying bot.Bot. It does
// not start polling until Start is called.
func New(cfg Config, b *agentbus.Bus) (*Adapter, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	a := &Adapter{cfg: cfg, bus: b, logger: cfg.Logger, stop: make(chan struct{})}
	tgBot, err := bot.New(cfg.Token)
	if err != nil {
		return nil, err
	}
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, a.handleMessage)
	a.b = tgBot
	return a, nil
}

func (a *Adapter) handleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	senderID := ""
	if update.Message.From != nil {
		senderID = strconv.FormatInt(update.Message.From.ID, 10)
	}
	in := model.InboundMessage{
		Channel:    "telegram",
		SenderID:   senderID,
		ChatID:     chatID,
		SessionKey: "telegram:" + chatID,
		Content:    update.Message.Text,
	}
	if err := a.bus.PublishInbound(ctx, in); err != nil {
		a.logger.Warn("telegram: publish inbound failed", "error", err)
	}
}

// Start begins long-polling for updates in the background and starts
// draining the Bus's outbound queue to deliver replies. bot.Bot.Start
// blocks until ctx is cancelled, so it runs in its own goroutine.
func (a *Adapter) Start(ctx context.Context) {
	go a.b.Start(ctx)
	go a.drainOutbound(ctx)
	a.logger.Info("telegram adapter started")
}

// Stop stops draining outbound messages. The polling loop stops when
// the ctx passed to Start is cancelled.
func (a *Adapter) Stop() {
	close(a.stop)
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
			if out.Channel != "telegram" {
				continue
			}
			chatID, err := strconv.ParseInt(out.ChatID, 10, 64)
			if err != nil {
				a.logger.Warn("telegram: invalid chat id", "chat_id", out.ChatID, "error", err)
				continue
			}
			if _, err := a.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: out.Content}); err != nil {
				a.logger.Warn("telegram: send failed", "error", err)
			}
		}
	}
}
