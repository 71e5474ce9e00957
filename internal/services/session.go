package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"apao/internal/domain"
	"apao/internal/store"
)

// Messages surfaced through LoginError.
const (
	msgDuplicateEmail     = "Este email ya está registrado"
	msgInvalidCredentials = "Email o contraseña incorrectos"
	msgUnavailable        = "No se pudo completar la operación, inténtalo de nuevo"
)

const registrationsBuffer = 16

// NewEventInput holds the fields a user fills in when creating an event.
type NewEventInput struct {
	Title           string
	Description     string
	Sport           string
	Location        string
	Date            time.Time
	Time            string
	MaxParticipants int
	ImageURL        *string
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithEmailService sends a welcome email after every registration.
func WithEmailService(e domain.EmailService) SessionOption {
	return func(s *SessionService) { s.email = e }
}

// WithSessionClock overrides time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithSessionIDGenerator overrides the id source for new users, events, comments and messages.
func WithSessionIDGenerator(newID func() string) SessionOption {
	return func(s *SessionService) { s.newID = newID }
}

// SessionService turns user actions into store mutations on behalf of the
// session user. It stamps ids and timestamps and keeps the state a client
// renders next to the store's streams: the last error message and the
// registration notifications.
type SessionService struct {
	store  *store.Store
	email  domain.EmailService
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	loginError    *store.Observable[string]
	registrations chan domain.User
}

// NewSessionService creates a SessionService over st.
func NewSessionService(st *store.Store, logger *slog.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		store:         st,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
		loginError:    store.NewObservable(""),
		registrations: make(chan domain.User, registrationsBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionService) Events() store.Stream[[]domain.Event]     { return s.store.Events() }
func (s *SessionService) Messages() store.Stream[[]domain.Message] { return s.store.Messages() }
func (s *SessionService) CurrentUser() store.Stream[*domain.User]  { return s.store.CurrentUser() }

// LoginError holds the latest register/login failure message; empty means none.
func (s *SessionService) LoginError() store.Stream[string] { return s.loginError }

// Registrations delivers every successfully registered user exactly once.
func (s *SessionService) Registrations() <-chan domain.User { return s.registrations }

// IsLoggedIn reports whether there is a session user.
func (s *SessionService) IsLoggedIn() bool { return s.store.CurrentUser().Value() != nil }

// RegisterUser creates a user with a fresh id. It does not log the user in.
func (s *SessionService) RegisterUser(ctx context.Context, email, password, name string) (*domain.User, error) {
	s.loginError.Set("")

	u := domain.NewUser(s.newID(), email, password, name, s.now())
	if err := s.store.RegisterUser(ctx, *u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			s.loginError.Set(msgDuplicateEmail)
		} else {
			s.loginError.Set(msgUnavailable)
		}
		return nil, err
	}
	u.Password = ""

	select {
	case s.registrations <- *u:
	default:
		s.logger.WarnContext(ctx, "registration notification dropped, nobody is listening", "user_id", u.ID)
	}

	if s.email != nil {
		data := &domain.WelcomeMessageEmailData{Email: u.Email, Name: u.Name, UserID: u.ID}
		if err := s.email.SendWelcomeMessage(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "welcome email failed", "user_id", u.ID, "err", err)
		}
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// LoginUser starts a session for the user with exactly this email and password.
func (s *SessionService) LoginUser(ctx context.Context, email, password string) (*domain.User, error) {
	s.loginError.Set("")
	if err := s.store.LoginUser(ctx, email, password); err != nil {
		s.loginError.Set(msgInvalidCredentials)
		return nil, err
	}
	return s.store.CurrentUser().Value(), nil
}

// Logout ends the session.
func (s *SessionService) Logout(ctx context.Context) {
	s.store.Logout(ctx)
}

// AddEvent creates an event organized by the session user.
func (s *SessionService) AddEvent(ctx context.Context, in NewEventInput) (domain.Event, error) {
	u, err := s.sessionUser()
	if err != nil {
		return domain.Event{}, err
	}
	e := domain.Event{
		ID:                  s.newID(),
		Title:               in.Title,
		Description:         in.Description,
		Sport:               in.Sport,
		Location:            in.Location,
		Date:                in.Date,
		Time:                in.Time,
		MaxParticipants:     in.MaxParticipants,
		CurrentParticipants: 0,
		OrganizerID:         u.ID,
		OrganizerName:       u.Name,
		ImageURL:            in.ImageURL,
		Likes:               []string{},
		Comments:            []domain.Comment{},
		CreatedAt:           s.now(),
		Status:              domain.StatusActive,
	}
	s.store.AddEvent(ctx, e)
	return e, nil
}

// LikeEvent toggles the session user's like on the event.
func (s *SessionService) LikeEvent(ctx context.Context, eventID string) (domain.Event, error) {
	u, err := s.sessionUser()
	if err != nil {
		return domain.Event{}, err
	}
	e, ok := s.store.LikeEvent(ctx, eventID, u.ID)
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return e, nil
}

// AddComment appends a comment by the session user to the event.
func (s *SessionService) AddComment(ctx context.Context, eventID, text string) (domain.Comment, error) {
	u, err := s.sessionUser()
	if err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:        s.newID(),
		UserID:    u.ID,
		UserName:  u.Name,
		Text:      text,
		Timestamp: s.now(),
	}
	if !s.store.AddComment(ctx, eventID, c) {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

// SendMessage sends text from the session user to receiverID, optionally about
// an event. Both must exist: an unknown receiver or event is ErrNotFound and
// nothing is stored.
func (s *SessionService) SendMessage(ctx context.Context, receiverID string, eventID *string, text string) (domain.Message, error) {
	u, err := s.sessionUser()
	if err != nil {
		return domain.Message{}, err
	}
	if _, err := s.store.GetUserByID(ctx, receiverID); err != nil {
		return domain.Message{}, err
	}
	if eventID != nil {
		if _, ok := s.findEvent(*eventID); !ok {
			return domain.Message{}, domain.ErrNotFound
		}
	}
	m := domain.Message{
		ID:         s.newID(),
		SenderID:   u.ID,
		ReceiverID: receiverID,
		EventID:    eventID,
		Text:       text,
		Timestamp:  s.now(),
	}
	s.store.SendMessage(ctx, m)
	return m, nil
}

// DeleteEvent removes an event organized by the session user.
func (s *SessionService) DeleteEvent(ctx context.Context, eventID string) error {
	u, err := s.sessionUser()
	if err != nil {
		return err
	}
	e, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	if e.OrganizerID != u.ID {
		return domain.ErrForbidden
	}
	if !s.store.DeleteEvent(ctx, eventID) {
		return domain.ErrNotFound
	}
	return nil
}

// AddFavoriteSport adds sport to the session user's favorites.
func (s *SessionService) AddFavoriteSport(ctx context.Context, sport string) error {
	u, err := s.sessionUser()
	if err != nil {
		return err
	}
	s.store.AddFavoriteSport(ctx, u.ID, sport)
	return nil
}

// FilterEvents lists feed events matching f.
func (s *SessionService) FilterEvents(f domain.EventFilter) []domain.Event {
	return s.store.FilterEvents(f)
}

// Conversation returns the session user's messages with otherID, oldest first.
func (s *SessionService) Conversation(otherID string, eventID *string) ([]domain.Message, error) {
	u, err := s.sessionUser()
	if err != nil {
		return nil, err
	}
	return s.store.Conversation(u.ID, otherID, eventID), nil
}

// Chats summarizes the session user's conversations, most recent first.
func (s *SessionService) Chats() ([]domain.Chat, error) {
	u, err := s.sessionUser()
	if err != nil {
		return nil, err
	}
	return domain.BuildChats(u.ID, s.store.Messages().Value()), nil
}

// UnreadCount returns how many messages to the session user are unread.
func (s *SessionService) UnreadCount() (int, error) {
	u, err := s.sessionUser()
	if err != nil {
		return 0, err
	}
	return s.store.UnreadCount(u.ID), nil
}

// MarkMessageRead flags a message addressed to the session user as read.
func (s *SessionService) MarkMessageRead(ctx context.Context, messageID string) error {
	u, err := s.sessionUser()
	if err != nil {
		return err
	}
	var found *domain.Message
	for _, m := range s.store.Messages().Value() {
		if m.ID == messageID {
			found = &m
			break
		}
	}
	if found == nil {
		return domain.ErrNotFound
	}
	if found.ReceiverID != u.ID {
		return domain.ErrForbidden
	}
	s.store.MarkMessageRead(ctx, messageID)
	return nil
}

func (s *SessionService) sessionUser() (*domain.User, error) {
	u := s.store.CurrentUser().Value()
	if u == nil {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

func (s *SessionService) findEvent(id string) (domain.Event, bool) {
	for _, e := range s.store.Events().Value() {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}
