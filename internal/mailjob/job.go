// Package mailjob runs the mail dispatch job: it subscribes to a broker topic,
// decodes each delivery into an event and hands it to a dispatcher, while
// owning the start/stop lifecycle of the subscription.
package mailjob

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/shaharia-lab/mailjob/internal/dispatch"
	"github.com/shaharia-lab/mailjob/internal/eventbus"
)

var (
	// ErrAlreadyStarted is returned by Start while the job is starting or running.
	ErrAlreadyStarted = errors.New("mail job already started")

	// ErrLifecycleMisuse is returned for a lifecycle call the current state does not allow.
	ErrLifecycleMisuse = errors.New("mail job lifecycle misuse")

	// errNotAccepting is returned to the broker for deliveries that race a stop.
	errNotAccepting = errors.Wrap(eventbus.ErrRequeue, "mail job is not accepting deliveries")
)

// Broker is the subscription side of the message broker.
type Broker interface {
	Subscribe(ctx context.Context, topic string, handler eventbus.Handler) (eventbus.Subscription, error)
}

// Config holds the dependencies of a Job.
type Config struct {
	Topic      string
	Broker     Broker
	Dispatcher dispatch.Dispatcher
	Observer   Observer
	Logger     *slog.Logger
}

// Job is the subscription lifecycle manager. Start and Stop must not be
// called concurrently; deliveries may be handled concurrently.
type Job struct {
	topic      string
	broker     Broker
	dispatcher dispatch.Dispatcher
	observer   Observer
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	sub      eventbus.Subscription
	inflight sync.WaitGroup
	active   atomic.Int64
}

// New creates a Job in StateCreated.
func New(cfg Config) (*Job, error) {
	if cfg.Topic == "" {
		return nil, errors.New("mailjob: topic is required")
	}
	if cfg.Broker == nil || cfg.Dispatcher == nil {
		return nil, errors.New("mailjob: broker and dispatcher are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = Observers(nil)
	}
	return &Job{
		topic:      cfg.Topic,
		broker:     cfg.Broker,
		dispatcher: cfg.Dispatcher,
		observer:   observer,
		logger:     logger.With("component", "mailjob", "topic", cfg.Topic),
	}, nil
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Topic returns the subscribed topic.
func (j *Job) Topic() string { return j.topic }

// InFlight returns the number of deliveries currently being handled.
func (j *Job) InFlight() int { return int(j.active.Load()) }

// Start subscribes to the topic. It is valid from StateCreated and
// StateStopped. If subscribing fails the previous state is restored.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	prev := j.state
	switch prev {
	case StateStarting, StateRunning:
		j.mu.Unlock()
		return ErrAlreadyStarted
	case StateStopping:
		j.mu.Unlock()
		return errors.Wrap(ErrLifecycleMisuse, "start called while stopping")
	}
	j.state = StateStarting
	j.mu.Unlock()

	sub, err := j.broker.Subscribe(ctx, j.topic, j.handle)
	if err != nil {
		j.mu.Lock()
		j.state = prev
		j.mu.Unlock()
		return errors.Wrapf(err, "subscribing to %q", j.topic)
	}

	j.mu.Lock()
	j.sub = sub
	j.state = StateRunning
	j.mu.Unlock()

	j.logger.Info("mail job started", "subscription_id", sub.ID())
	return nil
}

// Stop unsubscribes and waits for in-flight dispatches. It is a no-op from
// StateCreated and StateStopped. If ctx ends before the dispatches finish,
// Stop returns the context error and the job stays in StateStopping; calling
// Stop again resumes the wait.
func (j *Job) Stop(ctx context.Context) error {
	j.mu.Lock()
	switch j.state {
	case StateCreated, StateStopped:
		j.mu.Unlock()
		return nil
	}
	j.state = StateStopping
	sub := j.sub
	j.sub = nil
	j.mu.Unlock()

	var unsubErr error
	if sub != nil {
		if unsubErr = sub.Unsubscribe(); unsubErr != nil {
			j.logger.Warn("unsubscribe failed", "subscription_id", sub.ID(), "error", unsubErr)
		}
	}

	done := make(chan struct{})
	go func() {
		j.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		j.logger.Warn("stop interrupted while dispatches are in flight", "error", ctx.Err())
		return errors.Wrap(ctx.Err(), "waiting for in-flight dispatches")
	}

	j.mu.Lock()
	j.state = StateStopped
	j.mu.Unlock()

	j.logger.Info("mail job stopped")
	return unsubErr
}

// handle is the broker handler. A delivery arriving while the job is not
// accepting work is handed back to the broker for redelivery.
func (j *Job) handle(ctx context.Context, msg eventbus.Message) error {
	j.mu.Lock()
	if !j.state.accepting() {
		j.mu.Unlock()
		j.logger.Debug("delivery requeued, job not accepting", "message_id", msg.ID)
		return errNotAccepting
	}
	j.inflight.Add(1)
	j.active.Add(1)
	j.mu.Unlock()
	defer func() {
		j.active.Add(-1)
		j.inflight.Done()
	}()

	log := j.logger.With("message_id", msg.ID, "event_type", msg.Type, "attempt", msg.Attempt)

	evt, err := Decode(msg)
	if err != nil {
		log.Warn("malformed message dropped", "error", err)
		j.observer.ObserveMalformed(ctx, msg, err)
		return nil
	}

	out := j.dispatcher.Dispatch(ctx, evt.Type, evt.Payload)
	if out.Success() {
		log.Info("mail dispatched",
			"dispatch_id", out.DispatchID,
			"recipient", out.Recipient,
			"duration", out.Duration)
	} else {
		log.Error("mail dispatch failed",
			"dispatch_id", out.DispatchID,
			"kind", out.Kind(),
			"retryable", out.Retryable(),
			"error", out.Err.Err)
	}
	j.observer.ObserveOutcome(ctx, msg, out)
	return nil
}
