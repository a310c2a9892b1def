package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

type BackpressurePolicy string

const (
	BackpressureBlock BackpressurePolicy = config.BackpressureBlock
	BackpressureDrop  BackpressurePolicy = config.BackpressureDrop

	backoffJitter       = 0.2
	deadLetterTimeout   = 5 * time.Second
	defaultStartTimeout = 10 * time.Second

	// the last fifth of the close timeout is kept for the worker to exit
	workerExitShare = 5
)

type Options struct {
	BatchSize          int
	BatchTimeout       time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	BackoffMultiplier  float64
	BackoffMax         time.Duration
	QueueCapacity      int
	BackpressurePolicy BackpressurePolicy
	SubmitTimeout      time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BatchSize:          cfg.BatchSize,
		BatchTimeout:       cfg.BatchTimeout,
		MaxRetries:         cfg.MaxRetries,
		BackoffBase:        cfg.RetryBackoffBase,
		BackoffMultiplier:  cfg.RetryBackoffMultiplier,
		BackoffMax:         cfg.RetryBackoffMax,
		QueueCapacity:      cfg.QueueCapacity,
		BackpressurePolicy: BackpressurePolicy(cfg.BackpressurePolicy),
		SubmitTimeout:      cfg.SubmitTimeout,
	}
}

// Client hands events from any number of producers to a single background
// worker that batches them onto the broker connection.  The connection is owned
// by the worker; nothing else touches it while the worker runs.
type Client struct {
	opts      Options
	connector Connector
	sink      DeadLetterSink
	state     *StateMachine

	queue    chan *Task
	flushReq chan struct{}

	intakeMu sync.RWMutex
	closed   bool

	pendingMu sync.Mutex
	pending   int
	idle      chan struct{}

	publisher Publisher

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	finished chan struct{}

	closeOnce   sync.Once
	undelivered int
}

func NewClient(opts Options, connector Connector, sink DeadLetterSink) *Client {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 1
	}
	if opts.BackpressurePolicy == "" {
		opts.BackpressurePolicy = BackpressureBlock
	}
	if opts.BackoffMultiplier < 1 {
		opts.BackoffMultiplier = 1
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = opts.BackoffBase
	}

	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	c := &Client{
		opts:      opts,
		connector: connector,
		sink:      sink,
		queue:     make(chan *Task, opts.QueueCapacity),
		flushReq:  make(chan struct{}, 1),
		idle:      idle,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}

	c.state = NewStateMachine(func(from, to ConnectionState) {
		metrics.connectionStateGauge.Set(float64(to))
		logger.Log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Debug("Broker connection state changed")
	})

	return c
}

func (c *Client) State() ConnectionState {
	return c.state.State()
}

func (c *Client) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.pending
}

// Start performs the initial broker handshake and launches the worker.  A failed
// handshake is not fatal: the worker reconnects with backoff when it has work.
func (c *Client) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultStartTimeout)
		defer cancel()
	}

	if err := c.connect(ctx); err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err}).Warn("Initial broker connection failed, will retry when events arrive")
	}

	go c.run()
}

// Submit enqueues an encoded event without waiting for delivery.  Under the
// block policy it waits up to SubmitTimeout for space; under the drop policy it
// fails immediately.  Every rejected event is logged and counted.
func (c *Client) Submit(event domain.CanonicalEvent, payload []byte) error {
	task := &Task{
		Event: event,
		Message: Message{
			Key:       serializer.Key(event),
			Value:     payload,
			EventID:   event.ID(),
			EventType: event.Type(),
		},
		EnqueuedAt: time.Now(),
	}

	c.intakeMu.RLock()
	defer c.intakeMu.RUnlock()

	if c.closed {
		c.recordDrop(task, "closed", ErrClientClosed)
		return ErrClientClosed
	}

	c.addPending(1)

	select {
	case c.queue <- task:
		c.accepted()
		return nil
	default:
	}

	if c.opts.BackpressurePolicy == BackpressureBlock && c.opts.SubmitTimeout > 0 {
		timer := time.NewTimer(c.opts.SubmitTimeout)
		defer timer.Stop()

		select {
		case c.queue <- task:
			c.accepted()
			return nil
		case <-timer.C:
		}
	}

	c.addPending(-1)
	c.recordDrop(task, "queue_full", ErrQueueFull)
	return ErrQueueFull
}

// Flush asks the worker to send partial batches immediately and waits until
// nothing is pending or the timeout elapses.  It returns the number of events
// still undelivered.
func (c *Client) Flush(timeout time.Duration) int {
	select {
	case c.flushReq <- struct{}{}:
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		c.pendingMu.Lock()
		n := c.pending
		idle := c.idle
		c.pendingMu.Unlock()

		if n == 0 {
			return 0
		}

		select {
		case <-idle:
		case <-timer.C:
			return c.Pending()
		}
	}
}

// Close stops intake, drains within timeout, stops the worker, dead-letters
// anything left behind and releases the connection.  It returns the number of
// events that were not delivered to the broker.  Only the first call has effect.
//
// Close never blocks past timeout.  When a publish ignores cancellation the
// worker is left to finish in the background; Done reports when the connection
// has been released.
func (c *Client) Close(timeout time.Duration) int {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(timeout)

		c.intakeMu.Lock()
		c.closed = true
		c.intakeMu.Unlock()

		if err := c.state.Transition(Draining); err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err}).Debug("Unable to enter draining state")
		}

		if !c.started {
			c.undelivered = c.Pending()
			c.finish()
			return
		}

		c.undelivered = c.Flush(timeout - timeout/workerExitShare)
		c.cancel()

		if c.waitForWorker(time.Until(deadline)) {
			c.finish()
			return
		}

		logger.Log.WithFields(logrus.Fields{"pending": c.Pending()}).Warn("Broker publish still running after the shutdown timeout, releasing the connection once it returns")
		go func() {
			<-c.done
			c.finish()
		}()
	})

	return c.undelivered
}

// Done is closed once Close has dead-lettered the leftovers and released the
// broker connection.
func (c *Client) Done() <-chan struct{} {
	return c.finished
}

func (c *Client) waitForWorker(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Client) finish() {
	c.deadLetterLeftovers()
	c.releaseConnection()

	if err := c.state.Transition(Closed); err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err}).Debug("Unable to enter closed state")
	}

	close(c.finished)
}

func (c *Client) run() {
	defer close(c.done)

	for {
		batch, more := c.collect()

		if len(batch) > 0 {
			if more {
				c.deliver(batch)
			} else {
				c.deadLetterBatch(batch, ReasonShutdown, c.ctx.Err())
			}
		}

		if !more {
			return
		}
	}
}

// collect gathers up to BatchSize tasks, returning early when the batch timer
// fires or a flush is requested.  more is false once the worker has been
// cancelled.
func (c *Client) collect() (batch []*Task, more bool) {
	var timer *time.Timer
	var timeout <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		metrics.queueDepthGauge.Set(float64(len(c.queue)))
	}()

	for {
		select {
		case <-c.ctx.Done():
			return batch, false

		case task := <-c.queue:
			batch = append(batch, task)
			if len(batch) >= c.opts.BatchSize {
				return batch, true
			}
			if timer == nil {
				timer = time.NewTimer(c.opts.BatchTimeout)
				timeout = timer.C
			}

		case <-timeout:
			return batch, true

		case <-c.flushReq:
			for len(batch) < c.opts.BatchSize {
				select {
				case task := <-c.queue:
					batch = append(batch, task)
				default:
					return batch, true
				}
			}
			return batch, true
		}
	}
}

func (c *Client) deliver(batch []*Task) {
	start := time.Now()
	defer func() {
		metrics.batchDuration.Observe(time.Since(start).Seconds())
	}()

	msgs := make([]Message, len(batch))
	for i, task := range batch {
		msgs[i] = task.Message
	}

	attempts := 0

	operation := func() error {
		attempts++
		for _, task := range batch {
			task.Attempts++
		}

		if err := c.connect(c.ctx); err != nil {
			return err
		}

		err := c.publisher.Publish(c.ctx, msgs)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrConnectionLost) {
			c.dropConnection(err)
		}

		if IsUnrecoverable(err) {
			return backoff.Permanent(err)
		}

		return &TransientDeliveryError{Op: "publish", Err: err}
	}

	notify := func(err error, wait time.Duration) {
		metrics.retryCounter.Inc()
		logger.Log.WithFields(logrus.Fields{
			"error":      err,
			"attempt":    attempts,
			"batch_size": len(batch),
			"retry_in":   wait.String(),
		}).Warn("Batch delivery failed, retrying")
	}

	err := backoff.RetryNotify(operation, c.retryPolicy(), notify)
	if err == nil {
		metrics.deliveredCounter.Add(float64(len(batch)))
		metrics.batchSizeHistogram.Observe(float64(len(batch)))
		logger.Log.WithFields(logrus.Fields{"batch_size": len(batch), "attempts": attempts}).Debug("Batch delivered")
		c.addPending(-len(batch))
		return
	}

	reason := ReasonRetriesExhausted
	switch {
	case c.ctx.Err() != nil:
		reason = ReasonShutdown
	case IsUnrecoverable(err):
		reason = ReasonPermanentFailure
	}

	c.deadLetterBatch(batch, reason, &PermanentDeliveryError{Attempts: attempts, Err: err})
}

func (c *Client) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.BackoffBase
	b.Multiplier = c.opts.BackoffMultiplier
	b.MaxInterval = c.opts.BackoffMax
	b.RandomizationFactor = backoffJitter
	b.MaxElapsedTime = 0

	maxRetries := c.opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), c.ctx)
}

func (c *Client) connect(ctx context.Context) error {
	if c.publisher != nil {
		return nil
	}

	c.setState(Connecting)

	publisher, err := c.connector.Connect(ctx)
	if err != nil {
		metrics.connectFailureCounter.Inc()
		c.setState(Failed)
		return &TransientDeliveryError{Op: "connect", Err: err}
	}

	c.publisher = publisher
	c.setState(Ready)
	logger.Log.Info("Connected to broker")

	return nil
}

func (c *Client) dropConnection(cause error) {
	logger.Log.WithFields(logrus.Fields{"error": cause}).Warn("Broker connection lost")

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err}).Debug("Error closing lost broker connection")
		}
		c.publisher = nil
	}

	c.setState(Failed)
}

func (c *Client) releaseConnection() {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Close(); err != nil {
		logger.LogError("Error releasing broker connection", err)
	}
	c.publisher = nil
	logger.Log.Info("Broker connection released")
}

func (c *Client) setState(to ConnectionState) {
	if err := c.state.TransitionUnlessDraining(to); err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err}).Debug("Ignoring connection state change")
	}
}

// deadLetterLeftovers handles tasks still queued after the worker exited.  Intake
// is closed at this point so the queue cannot grow.
func (c *Client) deadLetterLeftovers() {
	var leftovers []*Task
	for {
		select {
		case task := <-c.queue:
			leftovers = append(leftovers, task)
		default:
			if len(leftovers) > 0 {
				c.deadLetterBatch(leftovers, ReasonShutdown, ErrClientClosed)
			}
			return
		}
	}
}

func (c *Client) deadLetterBatch(batch []*Task, reason string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), deadLetterTimeout)
	defer cancel()

	for _, task := range batch {
		dl := NewDeadLetter(task, reason, cause)
		log := logger.Log.WithFields(logrus.Fields{
			"event_id":   task.Message.EventID,
			"event_type": task.Message.EventType,
			"reason":     reason,
			"attempts":   task.Attempts,
			"error":      cause,
		})

		metrics.deadLetteredCounter.WithLabelValues(reason).Inc()

		if err := c.sink.Record(ctx, dl); err != nil {
			metrics.deadLetterFailureCount.Inc()
			log.WithFields(logrus.Fields{"sink_error": err, "payload": dl.Payload}).Error("Unable to write dead-letter record, event logged here instead")
			continue
		}

		log.Warn("Event moved to dead-letter log")
	}

	c.addPending(-len(batch))
}

func (c *Client) accepted() {
	metrics.submittedCounter.Inc()
	metrics.queueDepthGauge.Set(float64(len(c.queue)))
}

func (c *Client) recordDrop(task *Task, reason string, err error) {
	metrics.droppedCounter.WithLabelValues(reason).Inc()
	logger.Log.WithFields(logrus.Fields{
		"event_id":   task.Message.EventID,
		"event_type": task.Message.EventType,
		"realm":      task.Event.Realm(),
		"reason":     reason,
		"error":      err,
	}).Error("Identity event dropped")
}

func (c *Client) addPending(n int) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	previous := c.pending
	if n == 0 || (previous == 0 && n < 0) {
		return
	}

	if previous == 0 {
		c.idle = make(chan struct{})
	}

	c.pending += n

	if c.pending <= 0 {
		c.pending = 0
		close(c.idle)
	}
}
