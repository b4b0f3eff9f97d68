package chat

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Chat is a conversation between exactly two users
type Chat struct {
	ID           string    `json:"id" firestore:"-"`
	Participants []string  `json:"participants" firestore:"participants"`
	LastMessage  string    `json:"lastMessage" firestore:"lastMessage"`
	LastUpdated  time.Time `json:"lastUpdated" firestore:"lastUpdated"`
}

// Message is a single chat line
type Message struct {
	ID        string    `json:"id" firestore:"-"`
	Text      string    `json:"text" firestore:"text"`
	SenderID  string    `json:"senderId" firestore:"senderId"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Store persists chats and their messages
type Store interface {
	// GetOrCreateChat returns the chat between a and b, creating it on first use
	GetOrCreateChat(ctx context.Context, a, b string) (string, error)
	// Chats lists the chats userID takes part in, most recent first
	Chats(ctx context.Context, userID string) ([]Chat, error)
	// SendMessage appends a message. Blank text is ignored and returns nil.
	SendMessage(ctx context.Context, chatID, senderID, text string) (*Message, error)
	// Messages returns the chat history oldest first
	Messages(ctx context.Context, chatID string) ([]Message, error)
	// Watch calls fn with the full history on every change until ctx ends
	Watch(ctx context.Context, chatID string, fn func([]Message)) error
	// DeleteChat removes every message and then the chat
	DeleteChat(ctx context.Context, chatID string) error
	Close() error
}

// Participants returns the sorted pair used to identify a chat
func Participants(a, b string) []string {
	p := []string{a, b}
	sort.Strings(p)
	return p
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
