package pubsub

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// subscriberBuffer bounds each subscriber's queue. A subscriber that falls
// this far behind starts losing messages instead of growing memory.
const subscriberBuffer = 64

// Message is one published payload on a topic.
type Message struct {
	Topic   string
	Payload interface{}
}

// Subscriber receives messages for one topic until closed.
type Subscriber struct {
	id    string
	topic string
	ch    chan Message
	hub   *Hub
	once  sync.Once
}

func (s *Subscriber) ID() string { return s.id }

// C is the receive channel; it is closed on unsubscribe.
func (s *Subscriber) C() <-chan Message { return s.ch }

// Close detaches the subscriber from the hub and closes its channel.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.topic, s.id)
		close(s.ch)
	})
}

// Hub is an in-process topic publish/subscribe switch. Delivery is
// best-effort with a bounded per-subscriber buffer; overflow drops the
// message and logs, so one stalled consumer cannot hold memory hostage.
// Publishes are optionally mirrored to a Redis channel for external
// consumers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string][]*Subscriber

	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		topics: make(map[string][]*Subscriber),
		rdb:    rdb,
	}
}

// Subscribe registers a new subscriber on the topic.
func (h *Hub) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan Message, subscriberBuffer),
		hub:   h,
	}
	h.mu.Lock()
	h.topics[topic] = append(h.topics[topic], sub)
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(topic, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[topic]
	for i, sub := range subs {
		if sub.id == id {
			h.topics[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.topics[topic]) == 0 {
		delete(h.topics, topic)
	}
}

// Publish delivers the payload to every subscriber of the topic without
// blocking, then mirrors it to Redis when a client is configured.
func (h *Hub) Publish(ctx context.Context, topic string, payload interface{}) {
	msg := Message{Topic: topic, Payload: payload}

	h.mu.RLock()
	subs := h.topics[topic]
	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			log.Printf("[pubsub] subscriber %s on %s is full, dropping message", sub.id, topic)
		}
	}
	h.mu.RUnlock()

	if h.rdb != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[pubsub] marshal payload for %s: %v", topic, err)
			return
		}
		if err := h.rdb.Publish(ctx, "showtimes:"+topic, data).Err(); err != nil {
			log.Printf("[pubsub] redis publish %s: %v", topic, err)
		}
	}
}

// SubscriberCount reports how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close detaches every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscriber
	for _, subs := range h.topics {
		all = append(all, subs...)
	}
	h.topics = make(map[string][]*Subscriber)
	h.mu.Unlock()

	for _, sub := range all {
		sub.once.Do(func() { close(sub.ch) })
	}
}
