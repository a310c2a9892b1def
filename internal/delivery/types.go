package delivery

import (
	"context"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
)

// Message is one serialized event as handed to a broker.
type Message struct {
	Key       []byte
	Value     []byte
	EventID   domain.EventID
	EventType domain.EventType
}

// Publisher is an established broker connection.  Publish must either accept the
// whole batch or return an error; a partially accepted batch is retried whole.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
	Close() error
}

// Connector performs the broker handshake.
type Connector interface {
	Connect(ctx context.Context) (Publisher, error)
}

type ConnectorFunc func(ctx context.Context) (Publisher, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Publisher, error) {
	return f(ctx)
}

// DeadLetterSink durably records events that could not be delivered.
type DeadLetterSink interface {
	Record(ctx context.Context, dl DeadLetter) error
	Close() error
}

// Task is a queued event plus its delivery bookkeeping.  Tasks belong to the
// worker once they are dequeued.
type Task struct {
	Event      domain.CanonicalEvent
	Message    Message
	Attempts   int
	EnqueuedAt time.Time
}

const DeadLetterType = "identity_event.dlq"

const (
	ReasonRetriesExhausted = "retries_exhausted"
	ReasonPermanentFailure = "permanent_failure"
	ReasonShutdown         = "shutdown"
)

type DeadLetter struct {
	Type      string `json:"type"`
	Version   string `json:"version"`
	At        string `json:"at"`
	Reason    string `json:"reason"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Key       string `json:"key,omitempty"`
	Payload   string `json:"payload"`
}

func NewDeadLetter(t *Task, reason string, lastErr error) DeadLetter {
	dl := DeadLetter{
		Type:      DeadLetterType,
		Version:   "v1",
		At:        time.Now().UTC().Format(time.RFC3339Nano),
		Reason:    reason,
		Attempts:  t.Attempts,
		EventID:   t.Message.EventID.String(),
		EventType: t.Message.EventType.String(),
		Key:       string(t.Message.Key),
		Payload:   string(t.Message.Value),
	}

	if lastErr != nil {
		dl.LastError = lastErr.Error()
	}

	return dl
}
