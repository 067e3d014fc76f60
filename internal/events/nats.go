// Package events delivers relationship events outside the process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"linkup/backend/internal/relations"
)

const (
	StreamName     = "RELATIONS"
	SubjectPrefix  = "relations."
	SubjectPattern = SubjectPrefix + ">"
)

// NatsPublisher publishes events on JetStream, one subject per event type
// (relations.connection.accepted, relations.account.blocked, ...).
type NatsPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ relations.EventPublisher = (*NatsPublisher)(nil)

// NewNatsPublisher connects to url and makes sure the stream exists.
func NewNatsPublisher(ctx context.Context, url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("linkup-relations"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NatsPublisher{nc: nc, js: js}, nil
}

// Subject returns the subject an event of type t is published on.
func Subject(t relations.EventType) string {
	return SubjectPrefix + string(t)
}

func (p *NatsPublisher) Publish(ctx context.Context, ev relations.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	// The event id doubles as the message id so redeliveries are deduplicated.
	if _, err := p.js.Publish(ctx, Subject(ev.Type), data, jetstream.WithMsgID(ev.ID)); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
