package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/erazemk/perutnina/internal/db"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

type fakeConfirmation struct {
	acked bool
	err   error
}

func (c fakeConfirmation) WaitContext(ctx context.Context) (bool, error) {
	return c.acked, c.err
}

// fakePublisher answers the n-th publish with answers[n], or an ack when
// there are fewer answers.
type fakePublisher struct {
	keys     []string
	messages []amqp091.Publishing
	answers  []fakeConfirmation
}

func (p *fakePublisher) publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) (confirmation, error) {
	n := len(p.keys)
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, msg)
	if n < len(p.answers) {
		return p.answers[n], nil
	}
	return fakeConfirmation{acked: true}, nil
}

func TestAMQPSinkExportWaitsForAcks(t *testing.T) {
	pub := &fakePublisher{}
	sink := &AMQPSink{pub: pub, exchange: "analytics"}
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	err := sink.Export(context.Background(), day, []model.AnalyticsEvent{
		{ID: 1, Name: "transfer_initiated", CreatedAt: day},
		{ID: 2, Name: "transfer_verified", CreatedAt: day},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(pub.keys) != 2 || pub.keys[0] != "analytics.transfer_initiated" || pub.keys[1] != "analytics.transfer_verified" {
		t.Errorf("unexpected routing keys: %v", pub.keys)
	}
	for _, msg := range pub.messages {
		if msg.DeliveryMode != amqp091.Persistent || msg.Headers["day"] != "2026-06-01" {
			t.Errorf("unexpected message: %+v", msg)
		}
	}
}

func TestAMQPSinkExportFailsWithoutAck(t *testing.T) {
	tests := []struct {
		name   string
		answer fakeConfirmation
	}{
		{"nack", fakeConfirmation{acked: false}},
		{"channel closed", fakeConfirmation{err: errors.New("channel closed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := db.NewTestDB(t)
			ctx := context.Background()
			r := NewRecorder(database)

			day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
			recordAt(t, r, day.Add(time.Hour), "transfer_initiated", nil)
			recordAt(t, r, day.Add(2*time.Hour), "transfer_verified", nil)

			pub := &fakePublisher{answers: []fakeConfirmation{{acked: true}, tt.answer}}
			e := &Exporter{DB: database, Sink: &AMQPSink{pub: pub, exchange: "analytics"}}

			if _, err := e.Run(ctx, day); err == nil {
				t.Fatal("expected export to fail")
			}
			rest, _ := store.ListEventsBefore(ctx, database, day.Add(24*time.Hour))
			if len(rest) != 2 {
				t.Errorf("expected both events to stay buffered, got %d", len(rest))
			}
		})
	}
}
