package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// subscribeBuffer is how many messages a subscription holds before NATS
// starts dropping them as a slow consumer.
const subscribeBuffer = 256

// Bus carries events over a single NATS connection. It implements both
// Publisher and Subscriber.
type Bus struct {
	conn *nats.Conn
}

// Dial connects to the NATS server at url under the given client name. The
// connection retries forever once established; opts can add handlers such
// as nats.ReconnectHandler.
func Dial(url, name string, opts ...nats.Option) (*Bus, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Bus{conn: nc}, nil
}

// Publish sends event as JSON on topic.
func (b *Bus) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set("Content-Type", "application/json")
	msg.Data = data
	return b.conn.PublishMsg(msg)
}

// Subscribe delivers the messages whose subject matches pattern until ctx
// is done, then unsubscribes and closes the channel. The subscription is
// registered with the server before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context, pattern string) (<-chan Message, error) {
	in := make(chan *nats.Msg, subscribeBuffer)
	sub, err := b.conn.ChanSubscribe(pattern, in)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	if err := b.conn.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("subscribing to %s: %w", pattern, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-in:
				select {
				case out <- Message{Topic: m.Subject, Data: m.Data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close flushes what was published and closes the connection.
func (b *Bus) Close() error {
	if b.conn.IsConnected() {
		b.conn.FlushTimeout(2 * time.Second)
	}
	b.conn.Close()
	return nil
}
