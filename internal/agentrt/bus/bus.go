// Package bus implements the in-process message bus that decouples
// transport channels (telegram, discord, slack, http) from the agent
// loop: two bounded, unidirectional queues carrying InboundMessage and
// OutboundMessage envelopes.
package bus

import (
	"context"
	"log/slog"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// DefaultCapacity is the default bound on each queue. Publish blocks
// once a queue is full, applying backpressure to the producer rather
// than growing memory without limit.
const DefaultCapacity = 256

// BackpressurePolicy selects what a Publish call does when its queue
// is full: Block waits for room, Drop discards the new message.
type BackpressurePolicy int

const (
	// Block is the default: publishers wait for queue room.
	Block BackpressurePolicy = iota
	// Drop discards the message immediately rather than waiting.
	Drop
)

// Bus is a pair of bounded FIFO channels plus close semantics: closing
// the bus closes both channels, and readers observe that as a normal
// channel-closed (EOF-like) signal rather than an error.
type Bus struct {
	inbound  chan model.InboundMessage
	outbound chan model.OutboundMessage
	policy   BackpressurePolicy
	logger   *slog.Logger
	closed   chan struct{}
}

// New creates a Bus with the given capacity per queue and the default
// (Block) backpressure policy. A capacity of 0 falls back to
// DefaultCapacity.
func New(capacity int, logger *slog.Logger) *Bus {
	return NewWithPolicy(capacity, Block, logger)
}

// NewWithPolicy creates a Bus with an explicit backpressure policy.
func NewWithPolicy(capacity int, policy BackpressurePolicy, logger *slog.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		inbound:  make(chan model.InboundMessage, capacity),
		outbound: make(chan model.OutboundMessage, capacity),
		policy:   policy,
		logger:   logger,
		closed:   make(chan struct{}),
	}
}

// DroppedError signals a message was dropped rather than enqueued.
type DroppedError struct{}

func (DroppedError) Error() string { return "bus: dropped (queue full)" }

// ErrDropped is returned by a Publish call under the Drop policy when
// the queue has no room.
var ErrDropped error = DroppedError{}

// PublishInbound enqueues a message from a transport for the agent
// loop to consume. Under the Block policy it waits until there is
// room, the context is cancelled, or the bus is closed. Under Drop it
// returns ErrDropped immediately instead of waiting for room.
func (b *Bus) PublishInbound(ctx context.Context, msg model.InboundMessage) error {
	if b.policy == Drop {
		select {
		case b.inbound <- msg:
			return nil
		case <-b.closed:
			return ErrClosed
		default:
			return ErrDropped
		}
	}
	select {
	case b.inbound <- msg:
		return nil
	case <-b.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishOutbound enqueues an assistant reply for transports to
// deliver, following the same Block/Drop policy as PublishInbound.
func (b *Bus) PublishOutbound(ctx context.Context, msg model.OutboundMessage) error {
	if b.policy == Drop {
		select {
		case b.outbound <- msg:
			return nil
		case <-b.closed:
			return ErrClosed
		default:
			return ErrDropped
		}
	}
	select {
	case b.outbound <- msg:
		return nil
	case <-b.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbound returns the channel the agent loop reads from. The channel
// is closed when Close is called; callers should treat a closed-channel
// receive as a normal shutdown signal.
func (b *Bus) Inbound() <-chan model.InboundMessage {
	return b.inbound
}

// Outbound returns the channel transports read from.
func (b *Bus) Outbound() <-chan model.OutboundMessage {
	return b.outbound
}

// Close shuts the bus down, closing both queues exactly once. It is
// safe to call Close more than once.
func (b *Bus) Close() {
	select {
	case <-b.closed:
		return
	default:
		close(b.closed)
		close(b.inbound)
		close(b.outbound)
		b.logger.Info("bus closed")
	}
}

// ClosedError signals that a publish was attempted on a closed bus.
type ClosedError struct{}

func (ClosedError) Error() string { return "bus: closed" }

// ErrClosed is returned by PublishInbound/PublishOutbound once the bus
// has been closed.
var ErrClosed error = ClosedError{}
