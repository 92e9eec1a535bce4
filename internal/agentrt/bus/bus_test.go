package bus

import (
	"context"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

func TestPublishAndReceiveInbound(t *testing.T) {
	b := New(4, nil)
	msg := model.InboundMessage{Channel: "cli", Content: "hi"}
	if err := b.PublishInbound(context.Background(), msg); err != nil {
		t.Fatalf("PublishInbound: %v", err)
	}
	got := <-b.Inbound()
	if got.Content != "hi" {
		t.Fatalf("got %q, want %q", got.Content, "hi")
	}
}

func TestCloseSignalsEndOfStream(t *testing.T) {
	b := New(1, nil)
	b.Close()
	_, ok := <-b.Inbound()
	if ok {
		t.Fatal("expected closed channel to report !ok")
	}
}

func TestPublishAfterCloseErrors(t *testing.T) {
	b := New(1, nil)
	b.Close()
	err := b.PublishInbound(context.Background(), model.InboundMessage{})
	if err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestDropPolicyDropsWhenFull(t *testing.T) {
	b := NewWithPolicy(1, Drop, nil)
	ctx := context.Background()
	if err := b.PublishInbound(ctx, model.InboundMessage{Content: "first"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err := b.PublishInbound(ctx, model.InboundMessage{Content: "second"})
	if err != ErrDropped {
		t.Fatalf("got %v, want ErrDropped", err)
	}
}
