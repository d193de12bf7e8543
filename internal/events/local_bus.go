package events

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/metrics"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// Bus delivers published events to a Dispatcher, at least once.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
}

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus closed")

// LocalBusConfig tunes the in-process bus
type LocalBusConfig struct {
	Shards          int
	Redeliveries    int
	RedeliveryDelay time.Duration
}

func DefaultLocalBusConfig() LocalBusConfig {
	return LocalBusConfig{Shards: 16, Redeliveries: 3, RedeliveryDelay: 500 * time.Millisecond}
}

// LocalBus delivers in process. Events are sharded by Event.Key, so one document's events
// are handled in publish order while different documents proceed concurrently.
type LocalBus struct {
	dispatcher *Dispatcher
	log        *logger.Logger
	cfg        LocalBusConfig
	shards     []*shard
	inflight   sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	workers    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type shard struct {
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
}

func NewLocalBus(d *Dispatcher, log *logger.Logger, cfg LocalBusConfig) *LocalBus {
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &LocalBus{
		dispatcher: d,
		log:        log,
		cfg:        cfg,
		shards:     make([]*shard, cfg.Shards),
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := range b.shards {
		s := &shard{signal: make(chan struct{}, 1)}
		b.shards[i] = s
		b.workers.Add(1)
		go b.work(s)
	}
	return b
}

// Publish enqueues ev and returns immediately. The queue is unbounded, so a handler may
// publish from inside a dispatch without deadlocking.
func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Kind), string(ev.Op)).Inc()

	b.inflight.Add(1)
	s := b.shards[shardFor(ev.Key(), len(b.shards))]
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks until every published event, including events published by handlers, is handled.
func (b *LocalBus) Wait() {
	b.inflight.Wait()
}

// Close drains in-flight events and stops the workers. Follow-up events published by
// handlers during the drain are still accepted.
func (b *LocalBus) Close() {
	b.inflight.Wait()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.workers.Wait()
}

func (b *LocalBus) work(s *shard) {
	defer b.workers.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-b.ctx.Done():
				return
			case <-s.signal:
				continue
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		b.deliver(ev)
		b.inflight.Done()
	}
}

func (b *LocalBus) deliver(ev Event) {
	err := b.dispatcher.Dispatch(b.ctx, ev)
	for attempt := 1; err != nil && attempt <= b.cfg.Redeliveries; attempt++ {
		b.log.Warn("redelivering event", "event", ev.String(), "attempt", attempt, "error", err)
		select {
		case <-b.ctx.Done():
			return
		case <-time.After(b.cfg.RedeliveryDelay):
		}
		err = b.dispatcher.Dispatch(b.ctx, ev)
	}
	if err != nil {
		b.dispatcher.DeadLetter(b.ctx, "local-bus", ev, err)
	}
}

func shardFor(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
