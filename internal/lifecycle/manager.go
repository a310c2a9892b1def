package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/deadletter"
	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

type phase int

const (
	created phase = iota
	running
	stopped
)

func (p phase) String() string {
	switch p {
	case created:
		return "not started"
	case running:
		return "already started"
	default:
		return "stopped"
	}
}

// Manager owns the delivery client together with the broker connection and
// dead-letter sink it uses.  It implements adapter.Submitter.
type Manager struct {
	mu     sync.Mutex
	phase  phase
	client *delivery.Client
	sink   delivery.DeadLetterSink

	newConnector ConnectorFactory
	newSink      DeadLetterSinkFactory
}

func NewManager() *Manager {
	return &Manager{
		newConnector: NewConnector,
		newSink:      deadletter.NewDeadLetterSink,
	}
}

// Start builds the connector and dead-letter sink named by cfg, attempts the
// broker handshake once and starts the delivery worker.  A failed handshake is
// logged and retried by the worker; it does not fail Start.
func (m *Manager) Start(cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != created {
		return &LifecycleOrderError{Operation: "start", Phase: m.phase.String()}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	connector, err := m.newConnector(cfg.BrokerImpl, cfg)
	if err != nil {
		return fmt.Errorf("unable to create %s connector: %w", cfg.BrokerImpl, err)
	}

	sink, err := m.newSink(cfg.DeadLetterImpl, cfg)
	if err != nil {
		return fmt.Errorf("unable to create %s dead-letter sink: %w", cfg.DeadLetterImpl, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	client := delivery.NewClient(delivery.OptionsFromConfig(cfg), connector, sink)
	client.Start(ctx)

	m.client = client
	m.sink = sink
	m.phase = running

	logger.Log.WithFields(logrus.Fields{
		"broker":      cfg.BrokerImpl,
		"dead_letter": cfg.DeadLetterImpl,
		"state":       client.State().String(),
	}).Info("Identity event forwarder started")

	return nil
}

// Stop drains pending events for up to timeout, dead-letters what is left and
// releases the connection and the sink.  It returns the number of events that
// were not delivered.  Calling Stop again has no effect.
func (m *Manager) Stop(timeout time.Duration) (int, error) {
	m.mu.Lock()
	switch m.phase {
	case created:
		m.mu.Unlock()
		return 0, &LifecycleOrderError{Operation: "stop", Phase: m.phase.String()}
	case stopped:
		m.mu.Unlock()
		return 0, nil
	}
	m.phase = stopped
	client, sink := m.client, m.sink
	m.mu.Unlock()

	undelivered := client.Close(timeout)

	// the worker may still be dead-lettering a publish that ignored the timeout
	select {
	case <-client.Done():
		closeSink(sink)
	default:
		go func() {
			<-client.Done()
			closeSink(sink)
		}()
	}

	log := logger.Log.WithFields(logrus.Fields{"undelivered": undelivered})
	if undelivered > 0 {
		log.Warn("Identity event forwarder stopped with undelivered events")
	} else {
		log.Info("Identity event forwarder stopped")
	}

	return undelivered, nil
}

func closeSink(sink delivery.DeadLetterSink) {
	if err := sink.Close(); err != nil {
		logger.LogError("Unable to close the dead-letter sink", err)
	}
}

func (m *Manager) Submit(event domain.CanonicalEvent, payload []byte) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return delivery.ErrClientClosed
	}

	return client.Submit(event, payload)
}

func (m *Manager) State() delivery.ConnectionState {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return delivery.Disconnected
	}

	return client.State()
}
