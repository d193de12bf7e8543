package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/socialape/internal/metrics"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisStreamConfig configures the stream, the consumer group and redelivery
type RedisStreamConfig struct {
	Stream             string
	Group              string
	Consumer           string
	BatchSize          int64
	Block              time.Duration
	RedeliveryInterval time.Duration
	MaxDeliveries      int
	MaxLen             int64
}

func DefaultRedisStreamConfig() RedisStreamConfig {
	return RedisStreamConfig{
		Stream:             "socialape:events",
		Group:              "triggers",
		Consumer:           "triggers-1",
		BatchSize:          32,
		Block:              time.Second,
		RedeliveryInterval: 5 * time.Second,
		MaxDeliveries:      10,
		MaxLen:             100000,
	}
}

// RedisStreamBus carries events over a Redis stream. Entries are acknowledged only after a
// successful dispatch; unacknowledged entries are read again on every redelivery tick.
// One consumer handles entries sequentially. While an entry for a document key is pending,
// later entries for the same key are left pending too and run behind it on redelivery.
type RedisStreamBus struct {
	rdb        *redis.Client
	dispatcher *Dispatcher
	log        *logger.Logger
	cfg        RedisStreamConfig

	mu         sync.Mutex
	deliveries map[string]int
	held       map[string]bool
}

func NewRedisStreamBus(rdb *redis.Client, d *Dispatcher, log *logger.Logger, cfg RedisStreamConfig) *RedisStreamBus {
	return &RedisStreamBus{
		rdb:        rdb,
		dispatcher: d,
		log:        log.With("stream", cfg.Stream, "group", cfg.Group),
		cfg:        cfg,
		deliveries: make(map[string]int),
		held:       make(map[string]bool),
	}
}

func (b *RedisStreamBus) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: b.cfg.Stream,
		Values: map[string]interface{}{"key": ev.Key(), "event": string(payload)},
	}
	if b.cfg.MaxLen > 0 {
		args.MaxLen = b.cfg.MaxLen
		args.Approx = true
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return err
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Kind), string(ev.Op)).Inc()
	return nil
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (b *RedisStreamBus) EnsureGroup(ctx context.Context) error {
	err := b.rdb.XGroupCreateMkStream(ctx, b.cfg.Stream, b.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Run consumes the stream until ctx is cancelled.
func (b *RedisStreamBus) Run(ctx context.Context) error {
	if err := b.EnsureGroup(ctx); err != nil {
		return err
	}
	b.log.Info("event consumer started", "consumer", b.cfg.Consumer)

	interval := b.cfg.RedeliveryInterval
	if interval <= 0 {
		interval = DefaultRedisStreamConfig().RedeliveryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.Redeliver(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn("redelivery pass failed", "error", err)
			}
		default:
		}
		if err := b.readNew(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.log.Error("stream read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// Redeliver dispatches this consumer's pending entries again, oldest first. Once an entry
// for a key fails, the rest of that key's entries wait for the next pass.
func (b *RedisStreamBus) Redeliver(ctx context.Context) error {
	stalled := make(map[string]bool)
	start := "0"
	for {
		msgs, err := b.fetch(ctx, start)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		for _, msg := range msgs {
			key := entryKey(msg)
			if stalled[key] {
				continue
			}
			if !b.handle(ctx, msg) {
				stalled[key] = true
			}
		}
		start = msgs[len(msgs)-1].ID
	}

	b.mu.Lock()
	b.held = stalled
	b.mu.Unlock()
	return nil
}

// readNew dispatches entries not yet delivered to the group. Entries whose key is held stay
// pending without being dispatched.
func (b *RedisStreamBus) readNew(ctx context.Context) error {
	msgs, err := b.fetch(ctx, ">")
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		key := entryKey(msg)
		b.mu.Lock()
		held := b.held[key]
		b.mu.Unlock()
		if held {
			b.log.Debug("entry queued behind pending entry", "entry", msg.ID, "key", key)
			continue
		}
		if !b.handle(ctx, msg) {
			b.mu.Lock()
			b.held[key] = true
			b.mu.Unlock()
		}
	}
	return nil
}

func (b *RedisStreamBus) fetch(ctx context.Context, start string) ([]redis.XMessage, error) {
	block := b.cfg.Block
	if start != ">" {
		block = -1
	}
	streams, err := b.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.cfg.Group,
		Consumer: b.cfg.Consumer,
		Streams:  []string{b.cfg.Stream, start},
		Count:    b.cfg.BatchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msgs []redis.XMessage
	for _, stream := range streams {
		msgs = append(msgs, stream.Messages...)
	}
	return msgs, nil
}

func entryKey(msg redis.XMessage) string {
	key, _ := msg.Values["key"].(string)
	return key
}

// handle dispatches one entry and reports whether it was acknowledged.
func (b *RedisStreamBus) handle(ctx context.Context, msg redis.XMessage) bool {
	raw, _ := msg.Values["event"].(string)
	ev, err := Decode([]byte(raw))
	if err != nil {
		b.log.Error("dropping undecodable stream entry", "entry", msg.ID, "error", err)
		b.ack(ctx, msg.ID)
		return true
	}

	if err := b.dispatcher.Dispatch(ctx, ev); err != nil {
		b.mu.Lock()
		b.deliveries[msg.ID]++
		n := b.deliveries[msg.ID]
		b.mu.Unlock()
		if b.cfg.MaxDeliveries > 0 && n >= b.cfg.MaxDeliveries {
			b.dispatcher.DeadLetter(ctx, "redis-stream", ev, err)
			b.ack(ctx, msg.ID)
			return true
		}
		b.log.Warn("event left pending for redelivery", "entry", msg.ID, "event", ev.String(), "deliveries", n, "error", err)
		return false
	}
	b.ack(ctx, msg.ID)
	return true
}

func (b *RedisStreamBus) ack(ctx context.Context, id string) {
	b.mu.Lock()
	delete(b.deliveries, id)
	b.mu.Unlock()
	if err := b.rdb.XAck(ctx, b.cfg.Stream, b.cfg.Group, id).Err(); err != nil {
		b.log.Error("failed to ack stream entry", "entry", id, "error", err)
	}
}
