// Package notify publishes automation status transitions.
package notify

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"

	"github.com/chr1sbest/runctl/internal/tracker"
)

// Event is the payload published for each status transition.
type Event struct {
	RunID   string         `json:"run_id"`
	Status  tracker.Status `json:"status"`
	LastRun *time.Time     `json:"lastRun"`
	Message *string        `json:"message"`
}

// NewEvent builds an event from the record written for runID.
func NewEvent(runID string, rec tracker.Record) Event {
	return Event{
		RunID:   runID,
		Status:  rec.Status,
		LastRun: rec.LastRun,
		Message: rec.Message,
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ev Event) error
	Close()
}

// Nop discards events. Used when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close()              {}

// Client publishes events as JSON on a NATS subject.
type Client struct {
	nc      *nats.Conn
	subject string
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("runctl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to NATS at %s", url)
	}
	return &Client{nc: nc, subject: subject}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Publish(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := c.nc.Publish(c.subject, b); err != nil {
		return errors.Wrapf(err, "publish to %s", c.subject)
	}
	return nil
}

// New returns a NATS publisher when url is set and a Nop otherwise.
func New(url, subject string) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	c, err := Connect(url, subject)
	if err != nil {
		return nil, err
	}
	return c, nil
}
