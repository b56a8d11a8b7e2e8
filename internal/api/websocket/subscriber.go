package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/agentforge-ai/agentforge/internal/realtime"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Subscriber bridges redis pub/sub to the hub: every execution event channel
// is pattern-subscribed and each message fans out to that execution's
// WebSocket subscribers.
type Subscriber struct {
	redisClient *redis.Client
	hub         *Hub
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewSubscriber(redisClient *redis.Client, hub *Hub) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscriber{
		redisClient: redisClient,
		hub:         hub,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Subscriber) Start() {
	s.wg.Add(1)
	go s.subscribeToEvents()
}

func (s *Subscriber) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Subscriber) subscribeToEvents() {
	defer s.wg.Done()

	pubsub := s.redisClient.PSubscribe(s.ctx, realtime.EventChannelPattern)
	defer pubsub.Close()

	ch := pubsub.Channel()

	log.Info().Msg("Execution event subscriber started")

	for {
		select {
		case <-s.ctx.Done():
			log.Info().Msg("Execution event subscriber stopped")
			return
		case msg := <-ch:
			s.handleMessage(msg)
		}
	}
}

func (s *Subscriber) handleMessage(msg *redis.Message) {
	var event realtime.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		log.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to unmarshal execution event")
		return
	}

	if event.ExecutionID == "" {
		event.ExecutionID = executionIDFromChannel(msg.Channel)
	}

	s.hub.BroadcastEvent(event)
}

// executionIDFromChannel extracts the id from "execution:{id}:events".
func executionIDFromChannel(channel string) string {
	rest, ok := strings.CutPrefix(channel, "execution:")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, ":events")
	if !ok {
		return ""
	}
	return id
}
