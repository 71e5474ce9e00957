package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"apao/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageController_SendMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantEvent  string
	}{
		{name: "plain", body: `{"receiver_id":"bob","text":"hola"}`, wantStatus: http.StatusCreated},
		{name: "event scoped", body: `{"receiver_id":"bob","event_id":"e-1","text":"vienes?"}`, wantStatus: http.StatusCreated, wantEvent: "e-1"},
		{name: "empty event id", body: `{"receiver_id":"bob","event_id":"","text":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "missing text", body: `{"receiver_id":"bob"}`, wantStatus: http.StatusBadRequest},
		{name: "no session", body: `{"receiver_id":"bob","text":"x"}`, serviceErr: domain.ErrUnauthenticated, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeSession()
			svc.sendErr = tt.serviceErr
			c := NewMessageController(testLogger, svc)

			rr := httptest.NewRecorder()
			c.SendMessage(rr, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var msg domain.Message
			require.Nil(t, decodeEnvelope(t, rr, &msg))
			assert.Equal(t, "bob", msg.ReceiverID)
			if tt.wantEvent == "" {
				assert.Nil(t, svc.lastMsgEvent)
			} else {
				require.NotNil(t, svc.lastMsgEvent)
				assert.Equal(t, tt.wantEvent, *svc.lastMsgEvent)
			}
		})
	}
}

func TestMessageController_Reads(t *testing.T) {
	svc := newFakeSession()
	svc.unread = 3
	c := NewMessageController(testLogger, svc)

	req := httptest.NewRequest(http.MethodGet, "/messages/with/bob?event_id=e-1", nil)
	req.SetPathValue("userID", "bob")
	rr := httptest.NewRecorder()
	c.Conversation(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var msgs []domain.Message
	require.Nil(t, decodeEnvelope(t, rr, &msgs))
	assert.Empty(t, msgs)
	assert.Equal(t, "bob", svc.lastReceiver)
	require.NotNil(t, svc.lastMsgEvent)
	assert.Equal(t, "e-1", *svc.lastMsgEvent)

	rr = httptest.NewRecorder()
	c.UnreadCount(rr, httptest.NewRequest(http.MethodGet, "/messages/unread", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var unread UnreadResponse
	require.Nil(t, decodeEnvelope(t, rr, &unread))
	assert.Equal(t, 3, unread.Count)

	req = httptest.NewRequest(http.MethodPost, "/messages/m-1/read", nil)
	req.SetPathValue("messageID", "m-1")
	rr = httptest.NewRecorder()
	c.MarkRead(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "m-1", svc.lastMessageID)

	svc.markErr = domain.ErrForbidden
	rr = httptest.NewRecorder()
	c.MarkRead(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	svc.convErr = domain.ErrUnauthenticated
	rr = httptest.NewRecorder()
	c.ListConversations(rr, httptest.NewRequest(http.MethodGet, "/messages/conversations", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
