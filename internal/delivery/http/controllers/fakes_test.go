package controllers

import (
	"context"
	"io"
	"log/slog"
	"time"

	"apao/internal/domain"
	"apao/internal/services"
	"apao/internal/store"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeSession implements AuthService, EventService and MessageService for handler tests.
type fakeSession struct {
	current *store.Observable[*domain.User]
	events  *store.Observable[[]domain.Event]

	registerErr   error
	loginErr      error
	addEventErr   error
	deleteErr     error
	likeErr       error
	commentErr    error
	sendErr       error
	convErr       error
	markErr       error
	unread        int
	chats         []domain.Chat
	conversation  []domain.Message
	filtered      []domain.Event
	loggedOut     bool
	lastInput     services.NewEventInput
	lastFilter    domain.EventFilter
	lastEventID   string
	lastText      string
	lastReceiver  string
	lastMsgEvent  *string
	lastSport     string
	lastMessageID string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		current: store.NewObservable[*domain.User](nil),
		events:  store.NewObservable([]domain.Event{}),
	}
}

func (f *fakeSession) RegisterUser(ctx context.Context, email, password, name string) (*domain.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &domain.User{ID: "u-1", Email: email, Name: name, Sports: []string{}}, nil
}

func (f *fakeSession) LoginUser(ctx context.Context, email, password string) (*domain.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := &domain.User{ID: "u-1", Email: email, Name: "Alice", Sports: []string{}}
	f.current.Set(u)
	return u, nil
}

func (f *fakeSession) Logout(ctx context.Context) {
	f.loggedOut = true
	f.current.Set(nil)
}

func (f *fakeSession) CurrentUser() store.Stream[*domain.User] { return f.current }

func (f *fakeSession) AddFavoriteSport(ctx context.Context, sport string) error {
	f.lastSport = sport
	return nil
}

func (f *fakeSession) Events() store.Stream[[]domain.Event] { return f.events }

func (f *fakeSession) FilterEvents(filter domain.EventFilter) []domain.Event {
	f.lastFilter = filter
	return f.filtered
}

func (f *fakeSession) AddEvent(ctx context.Context, in services.NewEventInput) (domain.Event, error) {
	f.lastInput = in
	if f.addEventErr != nil {
		return domain.Event{}, f.addEventErr
	}
	return domain.Event{ID: "e-1", Title: in.Title, Sport: in.Sport, Date: in.Date, Likes: []string{}, Comments: []domain.Comment{}}, nil
}

func (f *fakeSession) DeleteEvent(ctx context.Context, eventID string) error {
	f.lastEventID = eventID
	return f.deleteErr
}

func (f *fakeSession) LikeEvent(ctx context.Context, eventID string) (domain.Event, error) {
	f.lastEventID = eventID
	if f.likeErr != nil {
		return domain.Event{}, f.likeErr
	}
	return domain.Event{ID: eventID, Likes: []string{"u-1"}}, nil
}

func (f *fakeSession) AddComment(ctx context.Context, eventID, text string) (domain.Comment, error) {
	f.lastEventID, f.lastText = eventID, text
	if f.commentErr != nil {
		return domain.Comment{}, f.commentErr
	}
	return domain.Comment{ID: "c-1", UserID: "u-1", Text: text}, nil
}

func (f *fakeSession) SendMessage(ctx context.Context, receiverID string, eventID *string, text string) (domain.Message, error) {
	f.lastReceiver, f.lastMsgEvent, f.lastText = receiverID, eventID, text
	if f.sendErr != nil {
		return domain.Message{}, f.sendErr
	}
	return domain.Message{ID: "m-1", SenderID: "u-1", ReceiverID: receiverID, EventID: eventID, Text: text}, nil
}

func (f *fakeSession) Conversation(otherID string, eventID *string) ([]domain.Message, error) {
	f.lastReceiver, f.lastMsgEvent = otherID, eventID
	return f.conversation, f.convErr
}

func (f *fakeSession) Chats() ([]domain.Chat, error) { return f.chats, f.convErr }

func (f *fakeSession) UnreadCount() (int, error) { return f.unread, f.convErr }

func (f *fakeSession) MarkMessageRead(ctx context.Context, messageID string) error {
	f.lastMessageID = messageID
	return f.markErr
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	err error
}

func (f *fakeTokenIssuer) Issue(userID, email string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}
