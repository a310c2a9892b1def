package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"
)

var errBrokerUnavailable = errors.New("broker unavailable")

type recordingPublisher struct {
	mu                  sync.Mutex
	batches             [][]Message
	calls               int
	callTimes           []time.Time
	failFirstN          int
	failWith            error
	delay               time.Duration
	stall               time.Duration
	blockUntilCancelled bool
	closeCount          int
}

func (p *recordingPublisher) Publish(ctx context.Context, msgs []Message) error {
	p.mu.Lock()
	p.calls++
	p.callTimes = append(p.callTimes, time.Now())
	call := p.calls
	failFirstN := p.failFirstN
	failWith := p.failWith
	delay := p.delay
	stall := p.stall
	block := p.blockUntilCancelled
	p.mu.Unlock()

	if stall > 0 {
		time.Sleep(stall)
	}

	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if failFirstN < 0 || call <= failFirstN {
		if failWith != nil {
			return failWith
		}
		return errBrokerUnavailable
	}

	batch := make([]Message, len(msgs))
	copy(batch, msgs)

	p.mu.Lock()
	p.batches = append(p.batches, batch)
	p.mu.Unlock()

	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return nil
}

func (p *recordingPublisher) Batches() [][]Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]Message, len(p.batches))
	copy(out, p.batches)
	return out
}

func (p *recordingPublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *recordingPublisher) CallTimes() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Time, len(p.callTimes))
	copy(out, p.callTimes)
	return out
}

func (p *recordingPublisher) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}

type fakeConnector struct {
	mu           sync.Mutex
	publisher    *recordingPublisher
	failFirstN   int
	attempts     int
	attemptTimes []time.Time
}

func (c *fakeConnector) Connect(ctx context.Context) (Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts++
	c.attemptTimes = append(c.attemptTimes, time.Now())

	if c.attempts <= c.failFirstN {
		return nil, fmt.Errorf("handshake %d: %w", c.attempts, errBrokerUnavailable)
	}

	return c.publisher, nil
}

func (c *fakeConnector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *fakeConnector) AttemptTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Time, len(c.attemptTimes))
	copy(out, c.attemptTimes)
	return out
}

type memorySink struct {
	mu      sync.Mutex
	records []DeadLetter
	err     error
	closed  bool
}

func (s *memorySink) Record(ctx context.Context, dl DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, dl)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) Records() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.records))
	copy(out, s.records)
	return out
}

var testEventTime = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

func buildTestEvent(producer int, seq int) (domain.CanonicalEvent, []byte) {
	event := domain.NewCanonicalEvent(
		domain.EventID(fmt.Sprintf("%d-%d", producer, seq)),
		domain.EventTypeLogin,
		testEventTime,
		domain.SubjectID(fmt.Sprintf("user-%d", producer)),
		"test-realm",
		domain.OutcomeSuccess,
		map[string]string{"producer": fmt.Sprint(producer), "seq": fmt.Sprint(seq)})

	payload, err := serializer.Encode(event)
	if err != nil {
		panic(err)
	}

	return event, payload
}

func testOptions() Options {
	return Options{
		BatchSize:          10,
		BatchTimeout:       5 * time.Millisecond,
		MaxRetries:         3,
		BackoffBase:        time.Millisecond,
		BackoffMultiplier:  2,
		BackoffMax:         10 * time.Millisecond,
		QueueCapacity:      1000,
		BackpressurePolicy: BackpressureBlock,
		SubmitTimeout:      10 * time.Millisecond,
	}
}
