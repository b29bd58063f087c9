// Package events publishes pipeline lifecycle events for outside observers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vinayprograms/agentkit/logging"
)

// DefaultSubjectPrefix is prepended to every event type.
const DefaultSubjectPrefix = "growwit"

// Event types.
const (
	CampaignStarted   = "campaign.started"
	CampaignCompleted = "campaign.completed"
	CampaignFailed    = "campaign.failed"
	StageCompleted    = "stage.completed"
	CraftStarted      = "craft.started"
	CraftCompleted    = "craft.completed"
	CraftFailed       = "craft.failed"
)

// Event is the published envelope.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Time      time.Time   `json:"time"`
	Data      interface{} `json:"data,omitempty"`
}

// Publisher delivers lifecycle events. Publishing never blocks a request
// for long and a failure to publish never fails one.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(ctx context.Context, e Event) error { return nil }
func (Noop) Close() error                               { return nil }

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *logging.Logger
}

// Connect dials the NATS server at url.
func Connect(url, prefix string, timeout time.Duration) (*NATSPublisher, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	opts := []nats.Option{nats.Name("growwit")}
	if timeout > 0 {
		opts = append(opts, nats.Timeout(timeout))
	}
	logger := logging.New().WithComponent("events")
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event type is published on.
func Subject(prefix, eventType string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + eventType
}

// Encode renders the event envelope, stamping the time if unset.
func Encode(e Event) ([]byte, error) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.Type, err)
	}
	return data, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(Subject(p.prefix, e.Type), data); err != nil {
		p.logger.Warn("publish failed", map[string]interface{}{"type": e.Type, "error": err.Error()})
		return err
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
