// Package events publishes grade lifecycle events to NATS through a background queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/teaching-portal-api/pkg/jobs"
)

// Event types emitted by the grading services.
const (
	TypeFinalGradesRecomputed = "grades.final.recomputed"
	TypeFinalGradesPublished  = "grades.final.published"
	TypeAttendanceScored      = "grades.attendance.scored"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	ClassID    string      `json:"class_id"`
	ActorID    string      `json:"actor_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Publisher delivers a single event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Connect dials NATS. An empty URL disables publication and returns a nil connection.
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// NATSPublisher writes events as JSON messages on a base subject suffixed with the event
// type, e.g. events.grades.final.recomputed.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher builds a publisher; a nil connection makes Publish a no-op.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event Event) string {
	if p.subject == "" {
		return event.Type
	}
	return p.subject + "." + event.Type
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	msg := nats.NewMsg(p.Subject(event))
	msg.Data = data
	msg.Header.Set("Event-Type", event.Type)
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Dispatcher hands events to a worker queue so request paths never wait on the broker.
type Dispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
	now    func() time.Time
}

// NewDispatcher wires a publisher behind a retrying job queue.
func NewDispatcher(publisher Publisher, cfg jobs.QueueConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(Event)
		if !ok {
			return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
		}
		return publisher.Publish(ctx, event)
	}
	return &Dispatcher{
		queue:  jobs.NewQueue("grade-events", handler, cfg),
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// Start launches the publishing workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop publishes events still buffered and waits for the workers. Events waiting on a
// retry backoff are dropped, so delivery is at most once across shutdown.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch stamps and enqueues an event.
func (d *Dispatcher) Dispatch(_ context.Context, event Event) error {
	if d == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}
	if err := d.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: event.Type, Payload: event}); err != nil {
		d.logger.Warn("event dropped", zap.String("type", event.Type), zap.String("class_id", event.ClassID), zap.Error(err))
		return err
	}
	return nil
}

// Stats exposes the underlying queue counters.
func (d *Dispatcher) Stats() jobs.Stats {
	return d.queue.Stats()
}
