package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"
)

var errBrokerDown = errors.New("broker down")

type countingPublisher struct {
	mu        sync.Mutex
	delivered int
	fail      bool
	closed    int
}

func (p *countingPublisher) Publish(ctx context.Context, msgs []delivery.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	p.delivered += len(msgs)
	return nil
}

func (p *countingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *countingPublisher) Delivered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered
}

func (p *countingPublisher) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type recordingSink struct {
	mu      sync.Mutex
	records []delivery.DeadLetter
	closed  int
}

func (s *recordingSink) Record(ctx context.Context, dl delivery.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, dl)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordingSink) Records() []delivery.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.DeadLetter(nil), s.records...)
}

func (s *recordingSink) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// newTestManager returns a manager whose connector hands out publisher, or
// fails the handshake when connectErr is set.
func newTestManager(publisher *countingPublisher, connectErr error, sink *recordingSink) *Manager {
	m := NewManager()
	m.newConnector = func(impl string, cfg *config.Config) (delivery.Connector, error) {
		return delivery.ConnectorFunc(func(ctx context.Context) (delivery.Publisher, error) {
			if connectErr != nil {
				return nil, connectErr
			}
			return publisher, nil
		}), nil
	}
	m.newSink = func(impl string, cfg *config.Config) (delivery.DeadLetterSink, error) {
		return sink, nil
	}
	return m
}

func testConfig() *config.Config {
	return &config.Config{
		ShutdownTimeout:        time.Second,
		BrokerImpl:             "log",
		BatchSize:              10,
		BatchTimeout:           5 * time.Millisecond,
		MaxRetries:             2,
		RetryBackoffBase:       time.Millisecond,
		RetryBackoffMultiplier: 2,
		RetryBackoffMax:        5 * time.Millisecond,
		QueueCapacity:          100,
		BackpressurePolicy:     config.BackpressureBlock,
		SubmitTimeout:          10 * time.Millisecond,
		DeadLetterImpl:         "log",
		UserDirectoryImpl:      "none",
	}
}

func testEvent(id string) (domain.CanonicalEvent, []byte) {
	event := domain.NewCanonicalEvent(
		domain.EventID(id),
		domain.EventTypeRegister,
		time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC),
		"user-1",
		"test-realm",
		domain.OutcomeSuccess,
		nil)

	payload, err := serializer.Encode(event)
	if err != nil {
		panic(err)
	}

	return event, payload
}
