package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"

	"github.com/sirupsen/logrus"
)

// DefaultEnrichmentTimeout bounds the time a host thread can spend on a user
// lookup.  Lookups only happen on a cache miss for REGISTER and UPDATE_PROFILE.
const DefaultEnrichmentTimeout = 100 * time.Millisecond

type Submitter interface {
	Submit(event domain.CanonicalEvent, payload []byte) error
}

// Listener is the callback surface handed to the identity server.  Every
// failure is logged and counted here; nothing is returned or panics into the
// caller.
type Listener struct {
	adapter           *Adapter
	submitter         Submitter
	validateSchema    bool
	enrichmentTimeout time.Duration
	closed            atomic.Bool
}

func NewListener(adapter *Adapter, submitter Submitter, validateSchema bool) *Listener {
	return &Listener{
		adapter:           adapter,
		submitter:         submitter,
		validateSchema:    validateSchema,
		enrichmentTimeout: DefaultEnrichmentTimeout,
	}
}

// SetEnrichmentTimeout changes the bound on user lookups.  Call it before the
// listener is handed to the host.
func (l *Listener) SetEnrichmentTimeout(timeout time.Duration) {
	l.enrichmentTimeout = timeout
}

func (l *Listener) OnEvent(ev HostEvent) {
	l.forward("user", ev.Type, func(ctx context.Context) (domain.CanonicalEvent, error) {
		return l.adapter.OnHostEvent(ctx, ev)
	})
}

func (l *Listener) OnAdminEvent(ev AdminEvent, includeRepresentation bool) {
	l.forward("admin", ev.OperationType, func(ctx context.Context) (domain.CanonicalEvent, error) {
		return l.adapter.OnAdminEvent(ctx, ev, includeRepresentation)
	})
}

// Close detaches the listener; later callbacks are dropped.  The broker
// connection belongs to the lifecycle manager and is not touched.
func (l *Listener) Close() {
	l.closed.Store(true)
}

func (l *Listener) forward(kind string, hostType string, convert func(context.Context) (domain.CanonicalEvent, error)) {
	log := logger.Log.WithFields(logrus.Fields{"kind": kind, "host_event_type": hostType})

	defer func() {
		if r := recover(); r != nil {
			metrics.failureCounter.WithLabelValues("panic").Inc()
			log.WithFields(logrus.Fields{"panic": fmt.Sprint(r)}).Error("Recovered from panic while forwarding identity event")
		}
	}()

	metrics.receivedCounter.WithLabelValues(kind).Inc()

	if l.closed.Load() {
		metrics.failureCounter.WithLabelValues("closed").Inc()
		log.Error("Identity event received after the listener was closed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.enrichmentTimeout)
	defer cancel()

	event, err := convert(ctx)
	if errors.Is(err, ErrEventFiltered) {
		metrics.filteredCounter.WithLabelValues(kind).Inc()
		log.Debug("Identity event filtered")
		return
	} else if err != nil {
		metrics.failureCounter.WithLabelValues("malformed").Inc()
		log.WithFields(logrus.Fields{"error": err}).Error("Dropping malformed identity event")
		return
	}

	log = log.WithFields(logrus.Fields{"event_id": event.ID(), "event_type": event.Type(), "realm": event.Realm()})

	payload, err := serializer.Encode(event)
	if err != nil {
		metrics.failureCounter.WithLabelValues("serialization").Inc()
		log.WithFields(logrus.Fields{"error": err}).Error("Dropping identity event that could not be serialized")
		return
	}

	if l.validateSchema {
		if err := serializer.Validate(payload); err != nil {
			metrics.failureCounter.WithLabelValues("schema").Inc()
			log.WithFields(logrus.Fields{"error": err}).Error("Dropping identity event that does not match the event schema")
			return
		}
	}

	if err := l.submitter.Submit(event, payload); err != nil {
		// the delivery client has already logged and counted the drop
		metrics.failureCounter.WithLabelValues("submit").Inc()
		log.WithFields(logrus.Fields{"error": err}).Debug("Identity event not accepted for delivery")
		return
	}

	log.Debug("Identity event submitted")
}
