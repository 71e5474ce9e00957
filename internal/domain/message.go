package domain

import (
	"context"
	"sort"
	"time"
)

// Message is a direct message between two users, optionally about an event.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	EventID    *string   `json:"event_id,omitempty"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// InConversation reports whether m was exchanged between a and b (in either
// direction). A nil eventID matches every event scope.
func (m *Message) InConversation(a, b string, eventID *string) bool {
	pair := (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	if !pair {
		return false
	}
	if eventID == nil {
		return true
	}
	return m.EventID != nil && *m.EventID == *eventID
}

// Chat is a conversation summary derived from messages; it is never stored.
type Chat struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	EventID      *string  `json:"event_id,omitempty"`
	LastMessage  *Message `json:"last_message"`
	UnreadCount  int      `json:"unread_count"`
}

// ConversationKey identifies the conversation between a and b scoped by
// eventID. The key does not depend on argument order.
func ConversationKey(a, b string, eventID *string) string {
	if b < a {
		a, b = b, a
	}
	key := a + ":" + b
	if eventID != nil && *eventID != "" {
		key += ":" + *eventID
	}
	return key
}

// BuildChats groups the messages userID took part in into chats, most recent first.
func BuildChats(userID string, messages []Message) []Chat {
	byKey := make(map[string]*Chat)
	for i := range messages {
		m := messages[i]
		var other string
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		key := ConversationKey(userID, other, m.EventID)
		c, ok := byKey[key]
		if !ok {
			participants := []string{userID, other}
			sort.Strings(participants)
			c = &Chat{ID: key, Participants: participants, EventID: m.EventID}
			byKey[key] = c
		}
		if c.LastMessage == nil || !m.Timestamp.Before(c.LastMessage.Timestamp) {
			c.LastMessage = &m
		}
		if m.ReceiverID == userID && !m.Read {
			c.UnreadCount++
		}
	}
	chats := make([]Chat, 0, len(byKey))
	for _, c := range byKey {
		chats = append(chats, *c)
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessage.Timestamp.After(chats[j].LastMessage.Timestamp)
	})
	return chats
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*Message, error)
	ListBetween(ctx context.Context, userA, userB string) ([]*Message, error)
	ListAll(ctx context.Context) ([]*Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Upsert(ctx context.Context, message *Message) error
	Update(ctx context.Context, message *Message) error
	MarkRead(ctx context.Context, id string) error
}

// Kinds of event change published through a Notifier.
const (
	EventCreated   = "created"
	EventUpdated   = "updated"
	EventLiked     = "liked"
	EventCommented = "commented"
	EventDeleted   = "deleted"
)

// Notifier fans store changes out to other processes.
type Notifier interface {
	PublishMessage(ctx context.Context, message *Message) error
	PublishEventChange(ctx context.Context, kind, eventID string) error
}
