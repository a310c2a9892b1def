package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {

	var (
		publisher *recordingPublisher
		connector *fakeConnector
		sink      *memorySink
		opts      Options
	)

	BeforeEach(func() {
		publisher = &recordingPublisher{}
		connector = &fakeConnector{publisher: publisher}
		sink = &memorySink{}
		opts = testOptions()
	})

	submitAll := func(client *Client, producer int, count int) {
		for i := 0; i < count; i++ {
			event, payload := buildTestEvent(producer, i)
			Expect(client.Submit(event, payload)).Should(Succeed())
		}
	}

	Describe("batching", func() {
		It("sends 1000 events as 10 ordered batches of 100", func() {
			opts.BatchSize = 100
			opts.BatchTimeout = time.Minute

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			submitAll(client, 0, 1000)

			Expect(client.Flush(5 * time.Second)).Should(Equal(0))

			batches := publisher.Batches()
			Expect(batches).Should(HaveLen(10))

			seq := 0
			for _, batch := range batches {
				Expect(batch).Should(HaveLen(100))
				for _, msg := range batch {
					Expect(msg.EventID.String()).Should(Equal(fmt.Sprintf("0-%d", seq)))
					seq++
				}
			}
			Expect(sink.Records()).Should(BeEmpty())
		})

		It("sends a partial batch once the batch timeout expires", func() {
			opts.BatchSize = 100
			opts.BatchTimeout = 20 * time.Millisecond

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			submitAll(client, 0, 3)

			Eventually(publisher.Batches, time.Second, 5*time.Millisecond).Should(HaveLen(1))
			Expect(publisher.Batches()[0]).Should(HaveLen(3))
		})

		It("keys each message by the event subject", func() {
			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			event, payload := buildTestEvent(7, 0)
			Expect(client.Submit(event, payload)).Should(Succeed())
			Expect(client.Flush(time.Second)).Should(Equal(0))

			msg := publisher.Batches()[0][0]
			Expect(string(msg.Key)).Should(Equal("user-7"))
			Expect(msg.Value).Should(Equal(payload))

			decoded, err := serializer.Decode(msg.Value)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(decoded.Equal(event)).Should(BeTrue())
		})
	})

	Describe("ordering", func() {
		It("preserves submission order per producer", func() {
			const producers = 4
			const perProducer = 250

			opts.BatchSize = 7

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			var wg sync.WaitGroup
			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func(producer int) {
					defer GinkgoRecover()
					defer wg.Done()
					submitAll(client, producer, perProducer)
				}(p)
			}
			wg.Wait()

			Expect(client.Flush(5 * time.Second)).Should(Equal(0))

			next := make(map[string]int)
			total := 0
			for _, batch := range publisher.Batches() {
				Expect(len(batch)).Should(BeNumerically("<=", 7))
				for _, msg := range batch {
					decoded, err := serializer.Decode(msg.Value)
					Expect(err).ShouldNot(HaveOccurred())

					producer, _ := decoded.Detail("producer")
					seq, _ := decoded.Detail("seq")
					Expect(seq).Should(Equal(strconv.Itoa(next[producer])))
					next[producer]++
					total++
				}
			}
			Expect(total).Should(Equal(producers * perProducer))
		})
	})

	Describe("retries", func() {
		It("retries exactly MaxRetries times before dead-lettering", func() {
			opts.MaxRetries = 3
			publisher.failFirstN = -1

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			event, payload := buildTestEvent(0, 0)
			Expect(client.Submit(event, payload)).Should(Succeed())
			Expect(client.Flush(5 * time.Second)).Should(Equal(0))

			Expect(publisher.Calls()).Should(Equal(4))
			Expect(publisher.Batches()).Should(BeEmpty())

			records := sink.Records()
			Expect(records).Should(HaveLen(1))
			Expect(records[0].Reason).Should(Equal(ReasonRetriesExhausted))
			Expect(records[0].Attempts).Should(Equal(4))
			Expect(records[0].EventID).Should(Equal("0-0"))
			Expect(records[0].Payload).Should(Equal(string(payload)))
			Expect(records[0].LastError).Should(ContainSubstring("broker unavailable"))
		})

		It("delivers on the third attempt after two failed handshakes with backoff in between", func() {
			opts.MaxRetries = 5
			opts.BackoffBase = 20 * time.Millisecond
			opts.BackoffMax = time.Second

			// The handshake attempted by Start fails too.
			connector.failFirstN = 3

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			Expect(client.State()).Should(Equal(Failed))

			event, payload := buildTestEvent(0, 0)
			Expect(client.Submit(event, payload)).Should(Succeed())
			Expect(client.Flush(5 * time.Second)).Should(Equal(0))

			Expect(publisher.Batches()).Should(HaveLen(1))
			Expect(publisher.Calls()).Should(Equal(1))
			Expect(sink.Records()).Should(BeEmpty())
			Expect(client.State()).Should(Equal(Ready))

			times := connector.AttemptTimes()
			Expect(times).Should(HaveLen(4))

			// Jitter keeps each wait within 20% of the nominal interval.
			Expect(times[2].Sub(times[1])).Should(BeNumerically(">=", 16*time.Millisecond))
			Expect(times[3].Sub(times[2])).Should(BeNumerically(">=", 32*time.Millisecond))
		})

		It("reconnects after the connection is lost", func() {
			publisher.failFirstN = 2
			publisher.failWith = fmt.Errorf("write: %w", ErrConnectionLost)

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			event, payload := buildTestEvent(0, 0)
			Expect(client.Submit(event, payload)).Should(Succeed())
			Expect(client.Flush(5 * time.Second)).Should(Equal(0))

			Expect(publisher.Batches()).Should(HaveLen(1))
			Expect(connector.Attempts()).Should(Equal(3))
			Expect(publisher.CloseCount()).Should(Equal(2))
		})

		It("dead-letters an unrecoverable failure without retrying", func() {
			publisher.failFirstN = -1
			publisher.failWith = Unrecoverable(errors.New("message too large"))

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			event, payload := buildTestEvent(0, 0)
			Expect(client.Submit(event, payload)).Should(Succeed())
			Expect(client.Flush(5 * time.Second)).Should(Equal(0))

			Expect(publisher.Calls()).Should(Equal(1))

			records := sink.Records()
			Expect(records).Should(HaveLen(1))
			Expect(records[0].Reason).Should(Equal(ReasonPermanentFailure))
			Expect(records[0].Attempts).Should(Equal(1))
		})

		It("logs the event when the dead-letter sink fails", func() {
			publisher.failFirstN = -1
			sink.err = errors.New("disk full")
			opts.MaxRetries = 0

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			defer client.Close(time.Second)

			event, payload := buildTestEvent(0, 0)
			Expect(client.Submit(event, payload)).Should(Succeed())
			Expect(client.Flush(5 * time.Second)).Should(Equal(0))
			Expect(client.Pending()).Should(Equal(0))
		})
	})

	Describe("backpressure", func() {
		It("drops immediately under the drop policy", func() {
			opts.QueueCapacity = 2
			opts.BackpressurePolicy = BackpressureDrop
			opts.SubmitTimeout = time.Second

			// The worker is never started so the queue stays full.
			client := NewClient(opts, connector, sink)

			submitAll(client, 0, 2)

			event, payload := buildTestEvent(0, 2)
			start := time.Now()
			Expect(client.Submit(event, payload)).Should(MatchError(ErrQueueFull))
			Expect(time.Since(start)).Should(BeNumerically("<", 100*time.Millisecond))

			Expect(client.Pending()).Should(Equal(2))
			Expect(client.Close(time.Second)).Should(Equal(2))

			records := sink.Records()
			Expect(records).Should(HaveLen(2))
			for _, dl := range records {
				Expect(dl.Reason).Should(Equal(ReasonShutdown))
			}
		})

		It("gives up after the submit timeout under the block policy", func() {
			opts.QueueCapacity = 1
			opts.SubmitTimeout = 50 * time.Millisecond

			client := NewClient(opts, connector, sink)
			defer client.Close(time.Second)

			submitAll(client, 0, 1)

			event, payload := buildTestEvent(0, 1)
			start := time.Now()
			Expect(client.Submit(event, payload)).Should(MatchError(ErrQueueFull))
			Expect(time.Since(start)).Should(BeNumerically(">=", 50*time.Millisecond))
		})

		It("returns once space frees under the block policy", func() {
			opts.QueueCapacity = 1
			opts.SubmitTimeout = time.Second

			client := NewClient(opts, connector, sink)
			defer client.Close(time.Second)

			submitAll(client, 0, 1)

			go func() {
				time.Sleep(30 * time.Millisecond)
				<-client.queue
			}()

			event, payload := buildTestEvent(0, 1)
			start := time.Now()
			Expect(client.Submit(event, payload)).Should(Succeed())
			elapsed := time.Since(start)
			Expect(elapsed).Should(BeNumerically(">=", 30*time.Millisecond))
			Expect(elapsed).Should(BeNumerically("<", time.Second))
		})
	})

	Describe("Close", func() {
		It("drains pending work and releases the connection", func() {
			publisher.delay = 5 * time.Millisecond

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())

			submitAll(client, 0, 50)

			Expect(client.Close(5 * time.Second)).Should(Equal(0))
			Expect(client.Pending()).Should(Equal(0))
			Expect(client.State()).Should(Equal(Closed))
			Expect(publisher.CloseCount()).Should(Equal(1))
			Expect(sink.Records()).Should(BeEmpty())

			delivered := 0
			for _, batch := range publisher.Batches() {
				delivered += len(batch)
			}
			Expect(delivered).Should(Equal(50))
		})

		It("rejects submissions once closed", func() {
			client := NewClient(opts, connector, sink)
			client.Start(context.Background())
			client.Close(time.Second)

			event, payload := buildTestEvent(0, 0)
			Expect(client.Submit(event, payload)).Should(MatchError(ErrClientClosed))
		})

		It("has no additional effect when called twice", func() {
			client := NewClient(opts, connector, sink)
			client.Start(context.Background())

			Expect(client.Close(time.Second)).Should(Equal(0))
			Expect(client.Close(time.Second)).Should(Equal(0))
			Expect(publisher.CloseCount()).Should(Equal(1))
			Expect(client.State()).Should(Equal(Closed))
		})

		It("dead-letters in-flight work when the timeout expires", func() {
			publisher.blockUntilCancelled = true

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())

			submitAll(client, 0, 25)

			start := time.Now()
			Expect(client.Close(50 * time.Millisecond)).Should(Equal(25))
			Expect(time.Since(start)).Should(BeNumerically("<", 2*time.Second))

			Eventually(client.Done(), 2*time.Second).Should(BeClosed())
			Expect(client.Pending()).Should(Equal(0))
			Expect(publisher.CloseCount()).Should(Equal(1))

			records := sink.Records()
			Expect(records).Should(HaveLen(25))
			for _, dl := range records {
				Expect(dl.Reason).Should(Equal(ReasonShutdown))
			}
		})

		It("returns within the timeout when a publish ignores cancellation", func() {
			publisher.stall = time.Second

			client := NewClient(opts, connector, sink)
			client.Start(context.Background())

			submitAll(client, 0, 1)

			start := time.Now()
			Expect(client.Close(100 * time.Millisecond)).Should(Equal(1))
			Expect(time.Since(start)).Should(BeNumerically("<", 500*time.Millisecond))
			Expect(client.Done()).ShouldNot(BeClosed())

			Eventually(client.Done(), 3*time.Second).Should(BeClosed())
			Expect(publisher.CloseCount()).Should(Equal(1))
			Expect(client.State()).Should(Equal(Closed))
		})
	})
})
