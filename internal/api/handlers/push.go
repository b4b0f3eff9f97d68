package handlers

import (
	"context"
	"strings"
	"sync"

	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/store"
	"github.com/karpool/karpool-client/pkg/chat"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/websocket"
)

// ChatTopicPrefix prefixes the websocket topic of a chat
const ChatTopicPrefix = "chat:"

// Observable is a store that reports its changes
type Observable interface {
	Subscribe(fn store.Listener) func()
}

// Push forwards store changes, alerts and chat messages to UI shells
// connected to the hub
type Push struct {
	ctx     context.Context
	hub     *websocket.Hub
	chats   chat.Store
	mu      sync.Mutex
	watches map[string]*chatWatch
	logger  *logger.Logger
}

type chatWatch struct {
	cancel context.CancelFunc
}

// NewPush creates the bridge and installs its chat topic handler on hub.
// Chat watches stop when ctx is done.
func NewPush(ctx context.Context, hub *websocket.Hub, chats chat.Store, log *logger.Logger) *Push {
	p := &Push{
		ctx:     ctx,
		hub:     hub,
		chats:   chats,
		watches: make(map[string]*chatWatch),
		logger:  log.Named("push"),
	}
	hub.OnTopic(p.onTopic)
	return p
}

// Alert implements prompt.Alerter
func (p *Push) Alert(_ context.Context, a prompt.Alert) {
	p.logger.Debug("Pushing alert", logger.String("title", a.Title))
	p.hub.Broadcast(websocket.Message{Type: websocket.TypeAlert, Data: a})
}

// Follow pushes every change of the given stores. The returned function
// stops following.
func (p *Push) Follow(stores ...Observable) func() {
	stops := make([]func(), len(stores))
	for i, s := range stores {
		stops[i] = s.Subscribe(func(ev store.Event) {
			p.hub.Broadcast(websocket.Message{Type: websocket.TypeState, Topic: ev.Store, Data: ev.Snapshot})
		})
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// onTopic watches a chat while at least one shell is subscribed to it
func (p *Push) onTopic(topic string, active bool) {
	chatID, ok := strings.CutPrefix(topic, ChatTopicPrefix)
	if !ok || chatID == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !active {
		if w, ok := p.watches[topic]; ok {
			w.cancel()
			delete(p.watches, topic)
		}
		return
	}
	if _, ok := p.watches[topic]; ok {
		return
	}

	ctx, cancel := context.WithCancel(p.ctx)
	w := &chatWatch{cancel: cancel}
	p.watches[topic] = w
	go func() {
		err := p.chats.Watch(ctx, chatID, func(msgs []chat.Message) {
			p.hub.Publish(topic, websocket.Message{Type: websocket.TypeChat, Data: msgs})
		})
		if err != nil {
			p.logger.Warn("Chat watch ended", logger.String("chat_id", chatID), logger.Err(err))
		}

		// Let a later subscriber start a fresh watch
		p.mu.Lock()
		if p.watches[topic] == w {
			delete(p.watches, topic)
		}
		p.mu.Unlock()
		cancel()
	}()
}

// Watching reports whether a chat is being watched
func (p *Push) Watching(chatID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watches[ChatTopicPrefix+chatID]
	return ok
}
