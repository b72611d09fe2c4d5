// Package eventbus provides an in-memory, asynchronous topic broker.
// Messages are queued on a buffered channel and delivered by a worker pool to
// one subscription of the message's topic. Topics without subscribers keep a
// bounded backlog that is flushed to the next subscription.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const (
	defaultWorkers      = 3
	defaultBufferSize   = 100
	defaultBacklogLimit = 1000
)

var (
	// ErrRequeue is returned (or wrapped) by a Handler that could not accept
	// a delivery. The message is offered to another live subscription of the
	// topic, or held at the front of the topic backlog if none is left.
	ErrRequeue = errors.New("eventbus: requeue message")

	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = errors.New("eventbus: closed")
)

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dropped messages and handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithBufferSize sets the capacity of the delivery channel.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithBacklogLimit caps the number of messages held for a topic that has no
// subscription. The oldest message is dropped when the cap is reached.
func WithBacklogLimit(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.backlogLimit = n
		}
	}
}

type topic struct {
	subs    []*subscription
	next    int
	backlog []Message
}

// Bus is the in-memory broker.
type Bus struct {
	ch   chan Message
	done chan struct{}

	mu     sync.Mutex
	topics map[string]*topic
	closed bool

	wg        sync.WaitGroup
	senders   sync.WaitGroup
	closeOnce sync.Once

	workers      int
	bufferSize   int
	backlogLimit int
	logger       *slog.Logger
}

// New creates a Bus with the given number of delivery goroutines and starts
// them. If workers is <= 0, defaultWorkers (3) is used.
func New(workers int, opts ...Option) *Bus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	b := &Bus{
		done:         make(chan struct{}),
		topics:       make(map[string]*topic),
		workers:      workers,
		bufferSize:   defaultBufferSize,
		backlogLimit: defaultBacklogLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ch = make(chan Message, b.bufferSize)
	b.startWorkers()
	return b
}

func (b *Bus) startWorkers() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
}

// work delivers messages until the bus is closed, then drains what is left
// in the channel.
func (b *Bus) work() {
	defer b.wg.Done()
	for {
		select {
		case m := <-b.ch:
			b.deliver(m)
		case <-b.done:
			for {
				select {
				case m := <-b.ch:
					b.deliver(m)
				default:
					return
				}
			}
		}
	}
}

// Publish enqueues a message on topicName. It blocks while the delivery
// channel is full, until ctx ends or the bus is closed.
func (b *Bus) Publish(ctx context.Context, topicName, msgType string, body []byte) (Message, error) {
	if topicName == "" {
		return Message{}, errors.New("eventbus: empty topic")
	}
	m := Message{
		ID:        uuid.NewString(),
		Topic:     topicName,
		Type:      msgType,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
	if err := b.enqueue(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (b *Bus) enqueue(ctx context.Context, m Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.senders.Add(1)
	b.mu.Unlock()
	defer b.senders.Done()

	select {
	case b.ch <- m:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "eventbus: publishing to %q", m.Topic)
	}
}

// Subscribe registers handler on topicName. Messages held in the topic's
// backlog are re-enqueued for delivery before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context, topicName string, handler Handler) (Subscription, error) {
	if topicName == "" {
		return nil, errors.New("eventbus: empty topic")
	}
	if handler == nil {
		return nil, errors.New("eventbus: nil handler")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	t := b.topicLocked(topicName)
	sub := &subscription{id: uuid.NewString(), topic: topicName, handler: handler, bus: b}
	t.subs = append(t.subs, sub)
	pending := t.backlog
	t.backlog = nil
	b.mu.Unlock()

	for i, m := range pending {
		if err := b.enqueue(ctx, m); err != nil {
			b.restoreBacklog(topicName, pending[i:])
			b.logger.Warn("eventbus: backlog flush interrupted",
				"topic", topicName, "remaining", len(pending)-i, "error", err)
			break
		}
	}
	return sub, nil
}

// Pending returns the number of messages held for topicName.
func (b *Bus) Pending(topicName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[topicName]; ok {
		return len(t.backlog)
	}
	return 0
}

// Close stops accepting new messages and subscriptions, delivers everything
// already enqueued and waits for the workers to finish. A message that lands
// on the channel after the workers exit is kept in its topic backlog.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.done)
	})
	b.senders.Wait()
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		select {
		case m := <-b.ch:
			b.holdLocked(b.topicLocked(m.Topic), m, false)
		default:
			return
		}
	}
}

func (b *Bus) topicLocked(name string) *topic {
	t, ok := b.topics[name]
	if !ok {
		t = &topic{}
		b.topics[name] = t
	}
	return t
}

// deliver hands m to one subscription of its topic, round-robin. A
// subscription that answers ErrRequeue is skipped and the next live one is
// tried. The message joins the backlog only when no subscription is left to
// take it.
func (b *Bus) deliver(m Message) {
	var rejected map[*subscription]bool
	for {
		b.mu.Lock()
		t := b.topicLocked(m.Topic)
		sub := t.nextLocked(rejected)
		if sub == nil {
			b.holdLocked(t, m, len(rejected) > 0)
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()

		m.Attempt++
		err := b.invoke(sub, m)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrRequeue):
			if rejected == nil {
				rejected = make(map[*subscription]bool)
			}
			rejected[sub] = true
		default:
			b.logger.Warn("eventbus: handler failed",
				"topic", m.Topic, "type", m.Type, "message_id", m.ID, "error", err)
			return
		}
	}
}

// nextLocked returns the next subscription in round-robin order that is not
// in skip, or nil.
func (t *topic) nextLocked(skip map[*subscription]bool) *subscription {
	for range len(t.subs) {
		sub := t.subs[t.next%len(t.subs)]
		t.next++
		if !skip[sub] {
			return sub
		}
	}
	return nil
}

// invoke calls the handler with panic recovery so one bad handler cannot take
// down a worker.
func (b *Bus) invoke(sub *subscription, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventbus: handler panicked",
				"topic", m.Topic, "type", m.Type, "message_id", m.ID, "panic", r)
			err = nil
		}
	}()
	return sub.handler(context.Background(), m)
}

func (b *Bus) holdLocked(t *topic, m Message, front bool) {
	if len(t.backlog) >= b.backlogLimit {
		dropped := t.backlog[0]
		t.backlog = t.backlog[1:]
		b.logger.Warn("eventbus: backlog full, dropping oldest message",
			"topic", dropped.Topic, "message_id", dropped.ID)
	}
	if front {
		t.backlog = append([]Message{m}, t.backlog...)
		return
	}
	t.backlog = append(t.backlog, m)
}

func (b *Bus) restoreBacklog(topicName string, msgs []Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topicLocked(topicName)
	t.backlog = append(append([]Message{}, msgs...), t.backlog...)
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[sub.topic]
	if !ok {
		return
	}
	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

type subscription struct {
	id      string
	topic   string
	handler Handler
	bus     *Bus
	once    sync.Once
}

func (s *subscription) ID() string    { return s.id }
func (s *subscription) Topic() string { return s.topic }

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() { s.bus.remove(s) })
	return nil
}
