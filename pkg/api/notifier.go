package api

import (
	"go.uber.org/zap"

	"github.com/hsong-dev/tradegate/pkg/exchange"
)

// HubNotifier adapts the WebSocket hub to the orchestrator's Notifier
// port. A gone destination is recoverable: the event is dropped and
// logged, never escalated.
type HubNotifier struct {
	hub *Hub
	log *zap.SugaredLogger
}

var _ exchange.Notifier = (*HubNotifier)(nil)

func NewHubNotifier(hub *Hub, log *zap.SugaredLogger) *HubNotifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &HubNotifier{hub: hub, log: log}
}

// Notify delivers one status event to the named connection. An empty
// destination means the submitter did not ask for push events.
func (n *HubNotifier) Notify(dest string, ev exchange.Event) error {
	if dest == "" {
		return nil
	}
	if err := n.hub.SendTo(dest, ev); err != nil {
		n.log.Debugw("event_delivery_failed", "dest", dest, "event", ev.Type, "err", err)
		return err
	}
	return nil
}
