// Package notify fans store changes out over Redis pub/sub so that several
// processes sharing one database see each other's messages.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"apao/internal/domain"
)

const (
	messageChannelPrefix = "apao:messages:user:"
	// EventsChannel carries event feed changes.
	EventsChannel = "apao:events"
)

// UserChannel returns the channel new messages for userID are published on.
func UserChannel(userID string) string {
	return messageChannelPrefix + userID
}

// EventChange is the payload published on EventsChannel. Origin identifies
// the publishing Notifier so a process can skip its own changes.
type EventChange struct {
	Kind    string `json:"kind"`
	EventID string `json:"event_id"`
	Origin  string `json:"origin"`
}

// Notifier implements domain.Notifier on top of Redis. A Notifier with a nil
// client publishes nothing.
type Notifier struct {
	rdb    *redis.Client
	logger *slog.Logger
	origin string
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client, logger *slog.Logger) *Notifier {
	return &Notifier{rdb: rdb, logger: logger, origin: uuid.NewString()}
}

// PublishMessage publishes m on the receiver's channel.
func (n *Notifier) PublishMessage(ctx context.Context, m *domain.Message) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(m.ReceiverID), payload).Err()
}

// PublishEventChange publishes kind/eventID on EventsChannel.
func (n *Notifier) PublishEventChange(ctx context.Context, kind, eventID string) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(EventChange{Kind: kind, EventID: eventID, Origin: n.origin})
	if err != nil {
		return fmt.Errorf("marshal event change: %w", err)
	}
	return n.rdb.Publish(ctx, EventsChannel, payload).Err()
}

// StartMessageSubscriber subscribes to every user message channel and calls
// onMessage for each decoded message until ctx is done.
func (n *Notifier) StartMessageSubscriber(ctx context.Context, onMessage func(ctx context.Context, m domain.Message)) error {
	if n.rdb == nil {
		return nil
	}
	return n.listen(ctx, n.rdb.PSubscribe(ctx, messageChannelPrefix+"*"), func(payload []byte) error {
		var m domain.Message
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		onMessage(ctx, m)
		return nil
	})
}

// StartEventSubscriber calls onChange for every event change published by
// other Notifiers until ctx is done.
func (n *Notifier) StartEventSubscriber(ctx context.Context, onChange func(ctx context.Context, c EventChange)) error {
	if n.rdb == nil {
		return nil
	}
	return n.listen(ctx, n.rdb.Subscribe(ctx, EventsChannel), func(payload []byte) error {
		var c EventChange
		if err := json.Unmarshal(payload, &c); err != nil {
			return err
		}
		if c.Origin != n.origin {
			onChange(ctx, c)
		}
		return nil
	})
}

// listen waits for the subscription to be confirmed, then feeds every payload
// to handle on a goroutine that exits with ctx.
func (n *Notifier) listen(ctx context.Context, sub *redis.PubSub, handle func(payload []byte) error) error {
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				n.dispatch(ctx, msg, handle)
			}
		}
	}()
	return nil
}

func (n *Notifier) dispatch(ctx context.Context, msg *redis.Message, handle func(payload []byte) error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "panic in subscriber", "channel", msg.Channel, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if err := handle([]byte(msg.Payload)); err != nil {
		n.logger.WarnContext(ctx, "drop malformed payload", "channel", msg.Channel, "err", err)
	}
}
