// Package events publishes questionnaire classification events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kalambet/permitflow/internal/permit"
)

// Classified is emitted after a questionnaire has been classified and stored.
type Classified struct {
	QuestionnaireID   string             `json:"questionnaireId"`
	ProjectID         string             `json:"projectId"`
	PermitRequirement permit.Requirement `json:"permitRequirement"`
	Created           bool               `json:"created"`
	OccurredAt        time.Time          `json:"occurredAt"`
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Classified) error
	Close() error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Classified) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// Subject returns the subject classification events are published on.
func Subject(prefix string) string {
	if prefix == "" {
		prefix = "permitflow"
	}
	return prefix + ".questionnaire.classified"
}

// natsConn is the part of *nats.Conn the publisher needs.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON messages on a NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string
}

// ConnectNATS dials url and returns a publisher for the subject derived from prefix.
func ConnectNATS(url, prefix string, opts ...nats.Option) (*NATSPublisher, error) {
	opts = append([]nats.Option{nats.Name("permitflow")}, opts...)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn, subject: Subject(prefix)}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Classified) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
