// Package events fans job transitions out to Redis pub/sub subscribers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"animrender/internal/jobs"
	"animrender/internal/pkg/logger"
)

// DefaultBuffer is the number of events queued before new ones are dropped.
const DefaultBuffer = 256

// publisher is the part of *redis.Client used here.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Event is the JSON payload published for every committed job change.
type Event struct {
	Type string    `json:"type"`
	Job  jobs.Job  `json:"job"`
	At   time.Time `json:"at"`
}

// RedisPublisher implements jobs.Listener. JobChanged only enqueues; a single
// goroutine publishes in commit order, so a slow or unreachable Redis never
// delays a registry write. Publish failures are logged and dropped.
type RedisPublisher struct {
	rdb     publisher
	channel string
	timeout time.Duration
	log     *logger.Logger

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewRedisPublisher(rdb publisher, channel string, log *logger.Logger) *RedisPublisher {
	return NewRedisPublisherSize(rdb, channel, DefaultBuffer, log)
}

// NewRedisPublisherSize is NewRedisPublisher with an explicit queue size.
func NewRedisPublisherSize(rdb publisher, channel string, buffer int, log *logger.Logger) *RedisPublisher {
	if log == nil {
		log = logger.NewDefault()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	p := &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		timeout: 2 * time.Second,
		log:     log.WithComponent("events"),
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *RedisPublisher) JobChanged(ctx context.Context, job jobs.Job) {
	ev := Event{
		Type: "job." + string(job.Status),
		Job:  job,
		At:   time.Now().UTC(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.log.FromContext(ctx).Warn("job event queue full, dropping event",
			"job_id", job.ID,
			"type", ev.Type,
		)
	}
}

func (p *RedisPublisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		p.publish(ev)
	}
}

func (p *RedisPublisher) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode job event", "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn("failed to publish job event",
			"channel", p.channel,
			"job_id", ev.Job.ID,
			"error", err.Error(),
		)
	}
}

// Close stops accepting events and waits for queued ones to be published,
// or for ctx to end.
func (p *RedisPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
