package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestConversationKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, ConversationKey("alice", "bob", nil), ConversationKey("bob", "alice", nil))
	assert.Equal(t, ConversationKey("a", "b", strPtr("ev-1")), ConversationKey("b", "a", strPtr("ev-1")))
	assert.NotEqual(t, ConversationKey("a", "b", nil), ConversationKey("a", "b", strPtr("ev-1")))
}

func TestMessage_InConversation(t *testing.T) {
	m := Message{SenderID: "a", ReceiverID: "b", EventID: strPtr("ev-1")}

	assert.True(t, m.InConversation("a", "b", nil))
	assert.True(t, m.InConversation("b", "a", nil))
	assert.True(t, m.InConversation("b", "a", strPtr("ev-1")))
	assert.False(t, m.InConversation("a", "b", strPtr("ev-2")))
	assert.False(t, m.InConversation("a", "c", nil))

	unscoped := Message{SenderID: "a", ReceiverID: "b"}
	assert.False(t, unscoped.InConversation("a", "b", strPtr("ev-1")))
}

func TestBuildChats(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []Message{
		{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi", Timestamp: base},
		{ID: "m2", SenderID: "bob", ReceiverID: "alice", Text: "hey", Timestamp: base.Add(time.Minute)},
		{ID: "m3", SenderID: "carol", ReceiverID: "alice", Text: "game?", Timestamp: base.Add(2 * time.Minute), EventID: strPtr("ev-1")},
		{ID: "m4", SenderID: "bob", ReceiverID: "carol", Text: "not mine", Timestamp: base.Add(3 * time.Minute)},
	}

	chats := BuildChats("alice", messages)
	require.Len(t, chats, 2)

	assert.Equal(t, "m3", chats[0].LastMessage.ID)
	assert.Equal(t, []string{"alice", "carol"}, chats[0].Participants)
	require.NotNil(t, chats[0].EventID)
	assert.Equal(t, "ev-1", *chats[0].EventID)
	assert.Equal(t, 1, chats[0].UnreadCount)

	assert.Equal(t, "m2", chats[1].LastMessage.ID)
	assert.Equal(t, []string{"alice", "bob"}, chats[1].Participants)
	assert.Equal(t, 1, chats[1].UnreadCount)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(items, PaginationParams{Page: 1, PageSize: 2}))
	assert.Equal(t, []int{5}, Paginate(items, PaginationParams{Page: 3, PageSize: 2}))
	assert.Equal(t, []int{}, Paginate(items, PaginationParams{Page: 4, PageSize: 2}))
	assert.Equal(t, items, Paginate(items, PaginationParams{}))
}
