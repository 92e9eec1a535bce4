// Package httpapi exposes the agent over a local HTTP endpoint: a
// synchronous POST /v1/messages request/reply surface and a
// websocket /v1/stream channel, both publishing InboundMessages to
// the Bus and matching replies off the outbound queue. Requests are
// authenticated with an HMAC-signed bearer token when a secret is
// configured.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	agentbus "github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Channel is the bus channel name this adapter publishes under.
const Channel = "http"

// ReplyTimeout bounds how long a synchronous POST waits for the agent
// loop to produce a reply.
const ReplyTimeout = 120 * time.Second

// Config configures the HTTP API adapter.
type Config struct {
	Addr      string
	JWTSecret string // empty disables auth (local-only deployments)
	Logger    *slog.Logger
}

// Adapter serves the local HTTP endpoint over a Bus.
type Adapter struct {
	cfg    Config
	bus    *agentbus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]chan model.OutboundMessage

	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	stop       chan struct{}
}

// New creates an Adapter over b. It does not listen until Start.
func New(cfg Config, b *agentbus.Bus) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		cfg:     cfg,
		bus:     b,
		logger:  cfg.Logger,
		pending: make(map[string]chan model.OutboundMessage),
		stop:    make(chan struct{}),
	}
}

// messageRequest is the POST /v1/messages body.
type messageRequest struct {
	Content    string `json:"content"`
	SessionKey string `json:"session_key,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
}

// messageResponse is the POST /v1/messages reply body.
type messageResponse struct {
	Content    string `json:"content"`
	SessionKey string `json:"session_key"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// authorize validates the Authorization bearer token when a secret is
// configured. Only HS256 is accepted.
func (a *Adapter) authorize(r *http.Request) error {
	if a.cfg.JWTSecret == "" {
		return nil
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errors.New("missing bearer token")
	}
	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}

// register creates the reply channel a request waits on, keyed by its
// chat id.
func (a *Adapter) register(chatID string) chan model.OutboundMessage {
	ch := make(chan model.OutboundMessage, 1)
	a.mu.Lock()
	a.pending[chatID] = ch
	a.mu.Unlock()
	return ch
}

func (a *Adapter) unregister(chatID string) {
	a.mu.Lock()
	delete(a.pending, chatID)
	a.mu.Unlock()
}

func (a *Adapter) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	if err := a.authorize(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content must not be empty"})
		return
	}

	chatID := uuid.NewString()
	sessionKey := req.SessionKey
	if sessionKey == "" {
		sessionKey = Channel + ":" + chatID
	}

	replyCh := a.register(chatID)
	defer a.unregister(chatID)

	in := model.InboundMessage{
		Channel:    Channel,
		SenderID:   req.SenderID,
		ChatID:     chatID,
		SessionKey: sessionKey,
		Content:    req.Content,
		ReceivedAt: time.Now(),
	}
	if err := a.bus.PublishInbound(r.Context(), in); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "inbound queue unavailable"})
		return
	}

	select {
	case out := <-replyCh:
		writeJSON(w, http.StatusOK, messageResponse{Content: out.Content, SessionKey: sessionKey})
	case <-time.After(ReplyTimeout):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "agent reply timed out"})
	case <-r.Context().Done():
	}
}

// streamFrame is one websocket message in either direction.
type streamFrame struct {
	Content    string `json:"content"`
	SessionKey string `json:"session_key,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (a *Adapter) handleStream(w http.ResponseWriter, r *http.Request) {
	if err := a.authorize(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	chatID := uuid.NewString()
	replyCh := a.register(chatID)
	defer a.unregister(chatID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame streamFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			sessionKey := frame.SessionKey
			if sessionKey == "" {
				sessionKey = Channel + ":" + chatID
			}
			in := model.InboundMessage{
				Channel:    Channel,
				ChatID:     chatID,
				SessionKey: sessionKey,
				Content:    frame.Content,
				ReceivedAt: time.Now(),
			}
			if err := a.bus.PublishInbound(r.Context(), in); err != nil {
				_ = conn.WriteJSON(streamFrame{Error: "inbound queue unavailable"})
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-a.stop:
			return
		case out := <-replyCh:
			if err := conn.WriteJSON(streamFrame{Content: out.Content}); err != nil {
				return
			}
		}
	}
}

// Handler returns the adapter's HTTP routes, exposed separately so
// tests can drive them through httptest.
func (a *Adapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", a.handleMessages)
	mux.HandleFunc("/v1/stream", a.handleStream)
	return mux
}

// Start binds the configured address and begins serving plus draining
// the Bus's outbound queue for http-channel replies.
func (a *Adapter) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	a.listener = listener
	a.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("httpapi server error", "error", err)
		}
	}()
	go a.DrainOutbound(ctx)
	a.logger.Info("httpapi adapter listening", "addr", a.cfg.Addr)
	return nil
}

// DrainOutbound routes http-channel outbound messages to the pending
// request or stream that is waiting on them. Exported so tests can
// run it without binding a listener.
func (a *Adapter) DrainOutbound(ctx context.Context) {
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
			if out.Channel != Channel {
				continue
			}
			a.mu.Lock()
			ch, ok := a.pending[out.ChatID]
			a.mu.Unlock()
			if !ok {
				a.logger.Debug("httpapi: no waiter for reply", "chat_id", out.ChatID)
				continue
			}
			select {
			case ch <- out:
			default:
			}
		}
	}
}

// Stop shuts the listener down and stops the outbound drain.
func (a *Adapter) Stop(ctx context.Context) error {
	close(a.stop)
	if a.httpServer == nil {
		return nil
	}
	return a.httpServer.Shutdown(ctx)
}
