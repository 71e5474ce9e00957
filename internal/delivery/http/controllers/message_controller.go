package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"apao/internal/delivery/http/helpers"
	"apao/internal/domain"
)

// MessageService is the part of the session service the message endpoints use.
type MessageService interface {
	SendMessage(ctx context.Context, receiverID string, eventID *string, text string) (domain.Message, error)
	Conversation(otherID string, eventID *string) ([]domain.Message, error)
	Chats() ([]domain.Chat, error)
	UnreadCount() (int, error)
	MarkMessageRead(ctx context.Context, messageID string) error
}

// SendMessageRequest is the request body for POST /messages
type SendMessageRequest struct {
	ReceiverID string  `json:"receiver_id"`
	EventID    *string `json:"event_id"`
	Text       string  `json:"text"`
}

// Validate implements Validator.
func (s SendMessageRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.ReceiverID) == "" {
		errs = append(errs, "receiver_id is required")
	}
	if strings.TrimSpace(s.Text) == "" {
		errs = append(errs, "text is required")
	}
	if s.EventID != nil && strings.TrimSpace(*s.EventID) == "" {
		errs = append(errs, "event_id must not be empty when set")
	}
	return errs
}

// UnreadResponse is the response body for GET /messages/unread
type UnreadResponse struct {
	Count int `json:"count"`
}

type MessageController struct {
	Logger  *slog.Logger
	Service MessageService
}

func NewMessageController(logger *slog.Logger, svc MessageService) *MessageController {
	return &MessageController{Logger: logger, Service: svc}
}

// SendMessage godoc
// @Summary Send a message
// @Tags messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} helpers.APIResponse{data=domain.Message}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /messages [post]
func (c *MessageController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	msg, err := c.Service.SendMessage(r.Context(), req.ReceiverID, req.EventID, req.Text)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, msg)
}

// ListConversations godoc
// @Summary List conversations
// @Description ListConversations returns one chat summary per conversation.
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Success 200 {object} helpers.APIResponse{data=[]domain.Chat}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /messages/conversations [get]
func (c *MessageController) ListConversations(w http.ResponseWriter, r *http.Request) {
	chats, err := c.Service.Chats()
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, chats)
}

// Conversation godoc
// @Summary Conversation with a user
// @Description Conversation returns the messages exchanged with {userID}, oldest first. The event_id query parameter narrows it to one event.
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Param userID path string true "Other user ID"
// @Param event_id query string false "Event ID"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Message}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /messages/with/{userID} [get]
func (c *MessageController) Conversation(w http.ResponseWriter, r *http.Request) {
	var eventID *string
	if v := r.URL.Query().Get("event_id"); v != "" {
		eventID = &v
	}
	msgs, err := c.Service.Conversation(r.PathValue("userID"), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, msgs)
}

// UnreadCount godoc
// @Summary Unread message count
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Success 200 {object} helpers.APIResponse{data=UnreadResponse}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /messages/unread [get]
func (c *MessageController) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := c.Service.UnreadCount()
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UnreadResponse{Count: n})
}

// MarkRead godoc
// @Summary Mark a message read
// @Tags messages
// @Security BearerAuth
// @Param messageID path string true "Message ID"
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /messages/{messageID}/read [post]
func (c *MessageController) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.MarkMessageRead(r.Context(), r.PathValue("messageID")); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
