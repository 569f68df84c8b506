package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"nhooyr.io/websocket"

	"github.com/naoTimesdev/showtimes-sub000/internal/pubsub"
)

// wsEnvelope is the frame sent to websocket clients for every hub message.
type wsEnvelope struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
}

// handleWebSocket streams hub topics to an authenticated client. Topics are
// requested via the "topics" query parameter as a comma-separated list, e.g.
// ?topics=notify:1234,project:abcd. An empty list closes the socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := s.userSvc.VerifyToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var topics []string
	for _, topic := range strings.Split(r.URL.Query().Get("topics"), ",") {
		topic = strings.TrimSpace(topic)
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) == 0 {
		http.Error(w, "topics query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[ws] accept: %v", err)
		return
	}

	subs := make([]*pubsub.Subscriber, 0, len(topics))
	for _, topic := range topics {
		subs = append(subs, s.hub.Subscribe(topic))
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	log.Printf("[ws] client connected: %s (%d topics)", user.Username, len(topics))

	ctx := r.Context()
	send := make(chan pubsub.Message, 64)
	done := make(chan struct{})

	// Fan every subscription into one channel so the writer stays single.
	for _, sub := range subs {
		go func(sub *pubsub.Subscriber) {
			for msg := range sub.C() {
				select {
				case send <- msg:
				case <-done:
					return
				}
			}
		}(sub)
	}

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			select {
			case msg := <-send:
				data, err := json.Marshal(wsEnvelope{Topic: msg.Topic, Data: msg.Payload})
				if err != nil {
					continue
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Reader loop keeps the connection alive and absorbs pings.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	close(done)

	log.Printf("[ws] client disconnected: %s", user.Username)
}
