package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/monitoring"
)

// Message types pushed to UI shells
const (
	TypeState = "state"
	TypeAlert = "alert"
	TypeChat  = "chat"
	TypePong  = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data"`
}

// TopicHandler is told when a topic gains its first subscriber (active) or
// loses its last one
type TopicHandler func(topic string, active bool)

// Hub maintains active client connections and fans out messages
type Hub struct {
	clients    map[*Client]bool
	topics     map[string]int
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	onTopic    TopicHandler
	mu         sync.RWMutex
	logger     *logger.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		topics:     make(map[string]int),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log.Named("ws"),
	}
}

// OnTopic installs the topic activity handler. Call before Run.
func (h *Hub) OnTopic(fn TopicHandler) {
	h.onTopic = fn
}

// Run starts the hub's main loop and returns when ctx is done. Once it
// returns every client is closed and Register/Unregister stop blocking.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			monitoring.PushClients.Set(float64(count))
			h.logger.Info("Client registered", logger.String("client_id", client.ID))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				h.logger.Warn("Dropping slow client", logger.String("client_id", client.ID))
				h.remove(client)
			}
		}
	}
}

// Register registers a new client. It returns false and closes the client
// when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		client.close()
		return false
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to all clients
func (h *Hub) Broadcast(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", logger.Err(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast queue full, message dropped", logger.String("type", message.Type))
	}
}

// Publish sends a message to the clients subscribed to topic
func (h *Hub) Publish(topic string, message Message) {
	message.Topic = topic
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal topic message", logger.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.IsSubscribed(topic) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Failed to send topic message to client",
				logger.String("topic", topic),
				logger.String("client_id", client.ID),
			)
		}
	}
}

// GetActiveConnections returns the number of active connections
func (h *Hub) GetActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns how many clients follow topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.topics[topic]
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	client.close()
	var idle []string
	for _, topic := range client.Topics() {
		if h.releaseLocked(topic) {
			idle = append(idle, topic)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	monitoring.PushClients.Set(float64(count))
	for _, topic := range idle {
		h.topicChanged(topic, false)
	}
	h.logger.Info("Client unregistered", logger.String("client_id", client.ID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		client.close()
	}
	topics := h.topics
	h.topics = make(map[string]int)
	h.mu.Unlock()

	monitoring.PushClients.Set(0)
	for topic := range topics {
		h.topicChanged(topic, false)
	}
}

// acquire counts a new subscriber to topic
func (h *Hub) acquire(topic string) {
	h.mu.Lock()
	h.topics[topic]++
	first := h.topics[topic] == 1
	h.mu.Unlock()

	if first {
		h.topicChanged(topic, true)
	}
}

// release drops a subscriber from topic
func (h *Hub) release(topic string) {
	h.mu.Lock()
	last := h.releaseLocked(topic)
	h.mu.Unlock()

	if last {
		h.topicChanged(topic, false)
	}
}

func (h *Hub) releaseLocked(topic string) bool {
	if h.topics[topic] == 0 {
		return false
	}
	h.topics[topic]--
	if h.topics[topic] == 0 {
		delete(h.topics, topic)
		return true
	}
	return false
}

func (h *Hub) topicChanged(topic string, active bool) {
	if h.onTopic != nil {
		h.onTopic(topic, active)
	}
}
