package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// MemoryStore keeps chats in process. Used when Firebase is disabled and
// in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	chats    map[string]*Chat
	messages map[string][]Message
	watchers map[string]map[chan struct{}]struct{}
	now      func() time.Time
}

// NewMemoryStore creates an empty store. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		chats:    make(map[string]*Chat),
		messages: make(map[string][]Message),
		watchers: make(map[string]map[chan struct{}]struct{}),
		now:      now,
	}
}

func (s *MemoryStore) GetOrCreateChat(_ context.Context, a, b string) (string, error) {
	participants := Participants(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.chats {
		if contains(c.Participants, participants[0]) && contains(c.Participants, participants[1]) {
			return id, nil
		}
	}

	id := uuid.New().String()
	s.chats[id] = &Chat{
		ID:           id,
		Participants: participants,
		LastUpdated:  s.now(),
	}
	return id, nil
}

func (s *MemoryStore) Chats(_ context.Context, userID string) ([]Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := []Chat{}
	for _, c := range s.chats {
		if contains(c.Participants, userID) {
			chats = append(chats, *c)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastUpdated.After(chats[j].LastUpdated)
	})
	return chats, nil
}

func (s *MemoryStore) SendMessage(_ context.Context, chatID, senderID, text string) (*Message, error) {
	if isBlank(text) {
		return nil, nil
	}

	s.mu.Lock()
	c, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.ErrChatNotFound
	}

	msg := Message{
		ID:        uuid.New().String(),
		Text:      text,
		SenderID:  senderID,
		CreatedAt: s.now(),
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	c.LastMessage = text
	c.LastUpdated = msg.CreatedAt
	s.signalLocked(chatID)
	s.mu.Unlock()

	return &msg, nil
}

func (s *MemoryStore) Messages(_ context.Context, chatID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.chats[chatID]; !ok {
		return nil, apperrors.ErrChatNotFound
	}
	return s.messagesLocked(chatID), nil
}

func (s *MemoryStore) Watch(ctx context.Context, chatID string, fn func([]Message)) error {
	changed := make(chan struct{}, 1)

	s.mu.Lock()
	if _, ok := s.chats[chatID]; !ok {
		s.mu.Unlock()
		return apperrors.ErrChatNotFound
	}
	if s.watchers[chatID] == nil {
		s.watchers[chatID] = make(map[chan struct{}]struct{})
	}
	s.watchers[chatID][changed] = struct{}{}
	// Initial snapshot, as a listener would receive
	changed <- struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.watchers[chatID], changed)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			s.mu.RLock()
			msgs := s.messagesLocked(chatID)
			s.mu.RUnlock()
			fn(msgs)
		}
	}
}

func (s *MemoryStore) DeleteChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return apperrors.ErrChatNotFound
	}
	delete(s.messages, chatID)
	delete(s.chats, chatID)
	s.signalLocked(chatID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) messagesLocked(chatID string) []Message {
	return append([]Message{}, s.messages[chatID]...)
}

// signalLocked wakes every watcher of chatID without blocking. A pending
// signal already covers the new state.
func (s *MemoryStore) signalLocked(chatID string) {
	for ch := range s.watchers[chatID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
