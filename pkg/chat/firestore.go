package chat

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// FirestoreConfig holds Firebase project settings
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreStore keeps chats in Cloud Firestore: one document per chat
// with a messages sub-collection
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes a Firebase app and its Firestore client
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) GetOrCreateChat(ctx context.Context, a, b string) (string, error) {
	participants := Participants(a, b)

	docs, err := s.client.Collection(chatsCollection).
		Where("participants", "array-contains", participants[0]).
		Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to query chats: %w", err)
	}
	for _, doc := range docs {
		var c Chat
		if err := doc.DataTo(&c); err != nil {
			continue
		}
		if contains(c.Participants, participants[1]) {
			return doc.Ref.ID, nil
		}
	}

	ref := s.client.Collection(chatsCollection).NewDoc()
	_, err = ref.Set(ctx, map[string]interface{}{
		"participants": participants,
		"lastMessage":  "",
		"lastUpdated":  firestore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Chats(ctx context.Context, userID string) ([]Chat, error) {
	iter := s.client.Collection(chatsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("lastUpdated", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	chats := []Chat{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list chats: %w", err)
		}
		var c Chat
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("failed to decode chat %s: %w", doc.Ref.ID, err)
		}
		c.ID = doc.Ref.ID
		chats = append(chats, c)
	}
	return chats, nil
}

// SendMessage writes the message and the chat's last-message fields in
// one transaction, so nothing is written for a chat that does not exist.
func (s *FirestoreStore) SendMessage(ctx context.Context, chatID, senderID, text string) (*Message, error) {
	if isBlank(text) {
		return nil, nil
	}

	chatRef := s.client.Collection(chatsCollection).Doc(chatID)
	msgRef := chatRef.Collection(messagesCollection).NewDoc()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(chatRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return apperrors.ErrChatNotFound
			}
			return fmt.Errorf("failed to load chat: %w", err)
		}
		if err := tx.Create(msgRef, map[string]interface{}{
			"text":      text,
			"senderId":  senderID,
			"createdAt": firestore.ServerTimestamp,
		}); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		return tx.Update(chatRef, []firestore.Update{
			{Path: "lastMessage", Value: text},
			{Path: "lastUpdated", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrChatNotFound) {
			return nil, apperrors.ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return &Message{ID: msgRef.ID, Text: text, SenderID: senderID}, nil
}

func (s *FirestoreStore) Messages(ctx context.Context, chatID string) ([]Message, error) {
	docs, err := s.messagesQuery(chatID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return decodeMessages(docs)
}

func (s *FirestoreStore) Watch(ctx context.Context, chatID string, fn func([]Message)) error {
	it := s.messagesQuery(chatID).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("chat watch failed: %w", err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read chat snapshot: %w", err)
		}
		msgs, err := decodeMessages(docs)
		if err != nil {
			return err
		}
		fn(msgs)
	}
}

func (s *FirestoreStore) DeleteChat(ctx context.Context, chatID string) error {
	chatRef := s.client.Collection(chatsCollection).Doc(chatID)
	if _, err := chatRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return apperrors.ErrChatNotFound
		}
		return fmt.Errorf("failed to load chat: %w", err)
	}

	docs, err := chatRef.Collection(messagesCollection).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	if len(docs) > 0 {
		bw := s.client.BulkWriter(ctx)
		jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
		for _, doc := range docs {
			job, err := bw.Delete(doc.Ref)
			if err != nil {
				bw.End()
				return fmt.Errorf("failed to queue message delete: %w", err)
			}
			jobs = append(jobs, job)
		}
		bw.End()

		for _, job := range jobs {
			if _, err := job.Results(); err != nil {
				return fmt.Errorf("failed to delete message: %w", err)
			}
		}
	}

	if _, err := chatRef.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// Close closes the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) messagesQuery(chatID string) firestore.Query {
	return s.client.Collection(chatsCollection).Doc(chatID).
		Collection(messagesCollection).
		OrderBy("createdAt", firestore.Asc)
}

func decodeMessages(docs []*firestore.DocumentSnapshot) ([]Message, error) {
	msgs := make([]Message, 0, len(docs))
	for _, doc := range docs {
		var m Message
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
		}
		m.ID = doc.Ref.ID
		msgs = append(msgs, m)
	}
	return msgs, nil
}
