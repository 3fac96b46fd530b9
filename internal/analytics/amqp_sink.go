package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/erazemk/perutnina/internal/model"
)

// confirmation is the broker's answer to one published message.
// *amqp091.DeferredConfirmation satisfies it.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type publisher interface {
	publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) (confirmation, error)
}

// channelPublisher publishes on a channel in confirm mode.
type channelPublisher struct {
	ch *amqp091.Channel
}

func (p channelPublisher) publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) (confirmation, error) {
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, fmt.Errorf("channel is not in confirm mode")
	}
	return dc, nil
}

// AMQPSink publishes events to a durable RabbitMQ topic exchange with the
// routing key "analytics.<event name>". Export returns only after the broker
// has acknowledged every message.
type AMQPSink struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	pub      publisher
	exchange string
}

// NewAMQPSink connects to the broker, declares the exchange and puts the
// channel into confirm mode.
func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %q: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}

	return &AMQPSink{conn: conn, channel: ch, pub: channelPublisher{ch: ch}, exchange: exchange}, nil
}

// Export publishes each event as a persistent JSON message and waits for the
// broker to confirm all of them. A nack or a lost confirmation fails the
// export so the events stay buffered.
func (s *AMQPSink) Export(ctx context.Context, day time.Time, events []model.AnalyticsEvent) error {
	pending := make([]confirmation, 0, len(events))
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encoding event %d: %w", ev.ID, err)
		}

		dc, err := s.pub.publish(ctx, s.exchange, "analytics."+ev.Name, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.CreatedAt,
			Headers:      amqp091.Table{"day": day.UTC().Format(time.DateOnly)},
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publishing event %d: %w", ev.ID, err)
		}
		pending = append(pending, dc)
	}

	for i, dc := range pending {
		acked, err := dc.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("waiting for confirmation of event %d: %w", events[i].ID, err)
		}
		if !acked {
			return fmt.Errorf("broker rejected event %d", events[i].ID)
		}
	}
	return nil
}

// Close closes the channel and the connection.
func (s *AMQPSink) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
