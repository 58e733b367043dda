package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/pkg/messaging"
)

type relayMessage struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// Relay publishes through a broker so every API instance delivers the
// event to its own members of the room. Frames reach local clients via
// the instance's own subscription.
type Relay struct {
	hub     *Hub
	broker  messaging.Broker
	channel string
}

func NewRelay(hub *Hub, broker messaging.Broker, channel string) *Relay {
	return &Relay{hub: hub, broker: broker, channel: channel}
}

// Publish falls back to local delivery when the broker is unavailable.
func (r *Relay) Publish(ctx context.Context, room, event string, data interface{}) error {
	frame, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}

	if err := r.broker.Publish(ctx, r.channel, relayMessage{Room: room, Frame: frame}); err != nil {
		log.Warn().Err(err).Str("room", room).Str("event", event).Msg("Broker publish failed, delivering locally")
		r.hub.BroadcastRaw(room, frame)
	}
	return nil
}

// Run consumes the broker channel until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	msgs, err := r.broker.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}

	for raw := range msgs {
		var msg relayMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Msg("Discarding malformed relay message")
			continue
		}
		r.hub.BroadcastRaw(msg.Room, msg.Frame)
	}
	return ctx.Err()
}
