package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Publisher emits execution events to redis pub/sub. Writes for a single
// execution are serialized behind a mutex so the per-node state machine
// ordering survives the transport.
//
// LOG_EMITTED events are rate limited and silently dropped over the limit;
// NODE_* and EXECUTION_* events are never dropped.
type Publisher struct {
	redisClient *redis.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	logRate  rate.Limit
	logBurst int
}

// NewPublisher creates a publisher capping log events at logPerSec per
// execution.
func NewPublisher(redisClient *redis.Client, logPerSec int) *Publisher {
	if logPerSec <= 0 {
		logPerSec = 50
	}
	return &Publisher{
		redisClient: redisClient,
		limiters:    make(map[string]*rate.Limiter),
		logRate:     rate.Limit(logPerSec),
		logBurst:    logPerSec,
	}
}

// Publish sends one event on the execution's channel.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.Kind == KindLogEmitted && !p.allowLog(ev.ExecutionID) {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.redisClient.Publish(ctx, EventChannel(ev.ExecutionID), payload).Err(); err != nil {
		log.Error().Err(err).
			Str("execution_id", ev.ExecutionID).
			Str("event", string(ev.Kind)).
			Msg("Failed to publish execution event")
		return err
	}
	return nil
}

// Release drops the execution's log limiter once the stream terminates.
func (p *Publisher) Release(executionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, executionID)
}

func (p *Publisher) allowLog(executionID string) bool {
	p.mu.Lock()
	limiter, ok := p.limiters[executionID]
	if !ok {
		limiter = rate.NewLimiter(p.logRate, p.logBurst)
		p.limiters[executionID] = limiter
	}
	p.mu.Unlock()
	return limiter.Allow()
}
