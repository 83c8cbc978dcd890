package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vigil/internal/notification/registry"
)

const bridgeChannel = "vigil:push"

// Bridge relays push messages between instances over Redis pub/sub, so a
// recipient connected to another instance still gets a live push. Messages
// carry an origin id; each instance skips its own publications to avoid
// double delivery to a locally held stream.
type Bridge struct {
	rdb      *redis.Client
	registry *registry.Registry
	origin   string
	logger   *slog.Logger
}

func NewBridge(rdb *redis.Client, reg *registry.Registry, logger *slog.Logger) *Bridge {
	return &Bridge{
		rdb:      rdb,
		registry: reg,
		origin:   uuid.NewString(),
		logger:   logger,
	}
}

type bridgeEnvelope struct {
	Origin    string `json:"origin"`
	Recipient string `json:"recipient"`
	Event     string `json:"event"`
	Data      []byte `json:"data"`
}

// Publish broadcasts a push message to all instances.
func (b *Bridge) Publish(ctx context.Context, recipient string, msg registry.Message) error {
	envelope, err := json.Marshal(bridgeEnvelope{
		Origin:    b.origin,
		Recipient: recipient,
		Event:     msg.Event,
		Data:      msg.Data,
	})
	if err != nil {
		return fmt.Errorf("encode bridge envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, bridgeChannel, envelope).Err(); err != nil {
		return fmt.Errorf("publish to bridge channel: %w", err)
	}
	return nil
}

// Run consumes bridge messages until ctx is cancelled, forwarding each to the
// local registry. Delivery stays best-effort end to end.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.WarnContext(ctx, "malformed bridge envelope", "error", err)
				continue
			}
			if envelope.Origin == b.origin {
				continue
			}
			b.registry.Send(envelope.Recipient, registry.Message{
				Event: envelope.Event,
				Data:  envelope.Data,
			})
		}
	}
}
