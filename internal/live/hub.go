// Package live fans out snapshot events to connected stream clients.
// Each topic carries the full re-derived state of one resource, so a
// client that misses an intermediate event still converges on the next
// one.
package live

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber channel depth. A slow client
// drops intermediate snapshots instead of blocking the publisher.
const DefaultBuffer = 8

const channelPrefix = "live:"

// Event is one published snapshot.
type Event struct {
	Topic   string
	Payload []byte
}

type subscriber struct {
	ch chan []byte
}

// Hub routes published snapshots to the subscribers of their topic.
// When backed by redis it also relays events across instances, so a
// client connected to one replica sees changes committed through
// another.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber

	rdb    *redis.Client
	logger *zap.Logger
}

// NewHub creates a hub. rdb may be nil, in which case events stay
// within the local process.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[string]*subscriber),
		rdb:    rdb,
		logger: logger,
	}
}

// Subscribe registers clientID on topic and returns its event channel.
// Subscribing the same client twice replaces the previous channel, so
// a reconnect never leaks the old one.
func (h *Hub) Subscribe(topic, clientID string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]*subscriber)
		h.topics[topic] = subs
	}
	if prev, ok := subs[clientID]; ok {
		close(prev.ch)
	}
	sub := &subscriber{ch: make(chan []byte, DefaultBuffer)}
	subs[clientID] = sub
	return sub.ch
}

// Unsubscribe removes clientID from topic and closes its channel. It
// is a no-op for unknown topics or clients.
func (h *Hub) Unsubscribe(topic, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	sub, ok := subs[clientID]
	if !ok {
		return
	}
	close(sub.ch)
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// Publish delivers the snapshot to every subscriber of the topic. With
// redis configured the event goes through the broker so every instance
// relays it; otherwise delivery is local.
func (h *Hub) Publish(ctx context.Context, topic string, payload []byte) {
	if h.rdb != nil {
		if err := h.rdb.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
			h.logger.Warn("live publish via redis failed, delivering locally",
				zap.String("topic", topic),
				zap.Error(err))
			h.deliver(topic, payload)
		}
		return
	}
	h.deliver(topic, payload)
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
			// Drop for a full subscriber. The next snapshot
			// supersedes this one anyway.
		}
	}
}

// Run relays broker events into local subscribers until ctx ends. It
// returns immediately when the hub has no redis backend.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	pubsub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	h.logger.Info("live relay started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("live relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				h.logger.Warn("live relay channel closed")
				return
			}
			topic := msg.Channel[len(channelPrefix):]
			h.deliver(topic, []byte(msg.Payload))
		}
	}
}

// SubscriberCount reports how many clients listen on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// HomeworkTopic names the homework snapshot stream of a class.
func HomeworkTopic(classID string) string {
	return "class:" + classID + ":homework"
}

// ProofTopic names the proof snapshot stream of one homework item.
func ProofTopic(homeworkID string) string {
	return "homework:" + homeworkID + ":proofs"
}

// NotificationTopic names a user's notification stream.
func NotificationTopic(userID string) string {
	return "user:" + userID + ":notifications"
}

// LeaderboardTopic names the ranking stream of a class.
func LeaderboardTopic(classID string) string {
	return "class:" + classID + ":leaderboard"
}
