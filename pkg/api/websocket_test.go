package api

import (
	"errors"
	"testing"

	"github.com/hsong-dev/tradegate/pkg/exchange"
)

func TestSendTo_UnknownConnection(t *testing.T) {
	h := NewHub()

	err := h.SendTo("no-such-conn", map[string]string{"type": "test"})
	if !errors.Is(err, ErrClientGone) {
		t.Errorf("err = %v, want ErrClientGone", err)
	}
}

func TestSendTo_BufferFull(t *testing.T) {
	h := NewHub()
	client := &Client{
		hub:           h,
		send:          make(chan []byte, 1),
		id:            "c1",
		subscriptions: make(map[string]bool),
	}
	h.clients[client.id] = client

	if err := h.SendTo("c1", "first"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	// Nothing drains the channel, so the next send cannot be queued.
	if err := h.SendTo("c1", "second"); !errors.Is(err, ErrClientGone) {
		t.Errorf("err = %v, want ErrClientGone when buffer is full", err)
	}
}

func TestSendTo_ConcurrentDisconnect(t *testing.T) {
	h := NewHub()
	go h.Run()

	// Deliveries racing a disconnect must degrade to ErrClientGone,
	// never a send on the closed channel.
	for i := 0; i < 200; i++ {
		client := &Client{
			hub:           h,
			send:          make(chan []byte, 1),
			id:            "c1",
			subscriptions: make(map[string]bool),
		}
		h.register <- client

		done := make(chan struct{})
		go func() {
			for j := 0; j < 50; j++ {
				h.SendTo("c1", "ping")
			}
			close(done)
		}()

		h.unregister <- client
		<-done
	}
}

func TestHubNotifier_EmptyDestination(t *testing.T) {
	n := NewHubNotifier(NewHub(), nil)

	// No connection ID on the submission: events are simply not pushed.
	if err := n.Notify("", exchange.Event{Type: exchange.EventOrderReceived}); err != nil {
		t.Errorf("empty destination should be a no-op, got %v", err)
	}
}

func TestHubNotifier_GoneDestination(t *testing.T) {
	n := NewHubNotifier(NewHub(), nil)

	err := n.Notify("gone", exchange.Event{Type: exchange.EventOrderMatched})
	if !errors.Is(err, ErrClientGone) {
		t.Errorf("err = %v, want ErrClientGone", err)
	}
}
