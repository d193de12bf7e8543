package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/metrics"
	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// Handler reacts to one event. It may be invoked more than once for the same event.
type Handler func(ctx context.Context, ev Event) error

// DeadLetterSink stores events a handler failed on permanently.
type DeadLetterSink interface {
	Record(ctx context.Context, handler string, ev Event, cause error) error
}

// RetryPolicy bounds in-process retries of transient handler failures
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

type route struct {
	kind Kind
	op   Operation
}

type subscription struct {
	name    string
	handler Handler
}

// Dispatcher routes events to the handlers subscribed to their kind and operation
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[route][]subscription
	policy RetryPolicy
	sink   DeadLetterSink
	log    *logger.Logger
}

type Option func(*Dispatcher)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		d.policy = p
	}
}

func WithDeadLetterSink(sink DeadLetterSink) Option {
	return func(d *Dispatcher) { d.sink = sink }
}

func NewDispatcher(log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		routes: make(map[route][]subscription),
		policy: DefaultRetryPolicy(),
		log:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers handler under name for events of the given kind and operation.
func (d *Dispatcher) Subscribe(kind Kind, op Operation, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := route{kind: kind, op: op}
	d.routes[r] = append(d.routes[r], subscription{name: name, handler: handler})
}

// Handlers returns the names subscribed to kind and op, in subscription order.
func (d *Dispatcher) Handlers(kind Kind, op Operation) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var names []string
	for _, s := range d.routes[route{kind: kind, op: op}] {
		names = append(names, s.name)
	}
	return names
}

// Dispatch runs every matching handler concurrently and waits for all of them.
// Permanent failures are dead-lettered and swallowed. The returned error joins the
// handlers that still failed transiently after the retry policy, so the caller can redeliver.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	subs := append([]subscription(nil), d.routes[route{kind: ev.Kind, op: ev.Op}]...)
	d.mu.RUnlock()
	if len(subs) == 0 {
		return nil
	}

	errs := make([]error, len(subs))
	var wg sync.WaitGroup
	for i, s := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = d.run(ctx, s, ev)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) run(ctx context.Context, s subscription, ev Event) error {
	start := time.Now()
	defer metrics.ObserveHandler(s.name, start)

	log := d.log.With("handler", s.name, "kind", ev.Kind, "op", ev.Op, "id", ev.ID)
	backoff := d.policy.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := invoke(ctx, s.handler, ev)
		if err == nil {
			metrics.EventsHandled.WithLabelValues(string(ev.Kind), string(ev.Op), s.name, metrics.OutcomeOK).Inc()
			return nil
		}
		if !models.IsRetryable(err) {
			log.Error("handler failed permanently", "error", err)
			metrics.EventsHandled.WithLabelValues(string(ev.Kind), string(ev.Op), s.name, metrics.OutcomeDeadLetter).Inc()
			d.DeadLetter(ctx, s.name, ev, err)
			return nil
		}
		if attempt >= d.policy.MaxAttempts {
			log.Warn("handler retries exhausted", "attempts", attempt, "error", err)
			metrics.EventsHandled.WithLabelValues(string(ev.Kind), string(ev.Op), s.name, metrics.OutcomeExhausted).Inc()
			return fmt.Errorf("%s: %w", s.name, err)
		}
		metrics.EventsHandled.WithLabelValues(string(ev.Kind), string(ev.Op), s.name, metrics.OutcomeRetried).Inc()
		log.Debug("retrying handler", "attempt", attempt, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", s.name, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if d.policy.MaxBackoff > 0 && backoff > d.policy.MaxBackoff {
			backoff = d.policy.MaxBackoff
		}
	}
}

// invoke turns a handler panic into an error so one bad handler cannot take the bus down.
func invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

// DeadLetter records ev as permanently failed for handler. A missing sink only logs.
func (d *Dispatcher) DeadLetter(ctx context.Context, handler string, ev Event, cause error) {
	if d.sink == nil {
		d.log.Error("dead letter", "handler", handler, "event", ev.String(), "error", cause)
		return
	}
	if err := d.sink.Record(context.WithoutCancel(ctx), handler, ev, cause); err != nil {
		d.log.Error("failed to record dead letter", "handler", handler, "event", ev.String(), "error", err, "cause", cause)
	}
}
