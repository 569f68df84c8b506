package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sub := hub.Subscribe("rss:srv-1")
	hub.Publish(context.Background(), "rss:srv-1", "hello")

	select {
	case msg := <-sub.C():
		if msg.Payload != "hello" {
			t.Errorf("unexpected payload %v", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sub := hub.Subscribe("rss:srv-1")
	hub.Publish(context.Background(), "rss:srv-2", "nope")

	select {
	case msg := <-sub.C():
		t.Errorf("unexpected delivery %v", msg)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sub := hub.Subscribe("notify:user")
	sub.Close()

	if n := hub.SubscriberCount("notify:user"); n != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", n)
	}
	// Publishing after close must not panic or block.
	hub.Publish(context.Background(), "notify:user", "late")
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sub := hub.Subscribe("rss:srv-1")
	// Overfill the bounded buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(context.Background(), "rss:srv-1", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffer holds at most subscriberBuffer messages.
	count := 0
	for {
		select {
		case <-sub.C():
			count++
			continue
		default:
		}
		break
	}
	if count != subscriberBuffer {
		t.Errorf("expected %d buffered messages, got %d", subscriberBuffer, count)
	}
}
