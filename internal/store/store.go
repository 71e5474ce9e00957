// Package store keeps the canonical in-memory state of the app (events,
// session user, messages) and mirrors every mutation into the relational
// repositories. Persistence is best effort: failures are logged and the
// in-memory snapshot stays authoritative.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"apao/internal/domain"
)

// Repositories groups the persistence ports the store writes through.
type Repositories struct {
	Users    domain.UserRepository
	Sports   domain.FavoriteSportRepository
	Events   domain.EventRepository
	Likes    domain.LikeRepository
	Comments domain.CommentRepository
	Messages domain.MessageRepository
}

// Option configures a Store.
type Option func(*Store)

// WithHasher makes the store hash passwords on registration and compare
// hashes on login. Without it passwords are stored and matched verbatim.
func WithHasher(h domain.PasswordHasher) Option {
	return func(s *Store) { s.hasher = h }
}

// WithNotifier fans new messages and event changes out through n.
func WithNotifier(n domain.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id source for rows the store creates itself (likes, favorite sports).
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store is the single source of truth for events, the session user and messages.
type Store struct {
	repos    Repositories
	hasher   domain.PasswordHasher
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	// serializes writers; readers go through the observables
	mu sync.Mutex

	events      *Observable[[]domain.Event]
	currentUser *Observable[*domain.User]
	messages    *Observable[[]domain.Message]
}

// New returns an empty Store. Call Load to hydrate it from storage.
func New(repos Repositories, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		repos:       repos,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
		events:      NewObservable([]domain.Event{}),
		currentUser: NewObservable[*domain.User](nil),
		messages:    NewObservable([]domain.Message{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events streams the event feed, newest first.
func (s *Store) Events() Stream[[]domain.Event] { return s.events }

// CurrentUser streams the session user; nil means logged out.
func (s *Store) CurrentUser() Stream[*domain.User] { return s.currentUser }

// Messages streams every known message in arrival order.
func (s *Store) Messages() Stream[[]domain.Message] { return s.messages }

// Load replaces the in-memory collections with what storage holds.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repos.Events.List(ctx, domain.EventFilter{Order: domain.OrderByCreatedDesc})
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	events := make([]domain.Event, 0, len(rows))
	for _, e := range rows {
		if err := s.hydrateEvent(ctx, e); err != nil {
			return err
		}
		events = append(events, *e)
	}

	msgRows, err := s.repos.Messages.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	messages := make([]domain.Message, 0, len(msgRows))
	for _, m := range msgRows {
		messages = append(messages, *m)
	}

	s.events.Set(events)
	s.messages.Set(messages)
	s.logger.InfoContext(ctx, "store loaded", "events", len(events), "messages", len(messages))
	return nil
}

// hydrateEvent fills in the like set and the comments, in posting order.
func (s *Store) hydrateEvent(ctx context.Context, e *domain.Event) error {
	likes, err := s.repos.Likes.ListByEvent(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("load likes for %s: %w", e.ID, err)
	}
	for _, l := range likes {
		e.Likes = append(e.Likes, l.UserID)
	}
	comments, err := s.repos.Comments.ListByEventChronological(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("load comments for %s: %w", e.ID, err)
	}
	for _, c := range comments {
		e.Comments = append(e.Comments, *c)
	}
	return nil
}

// ApplyEventChange brings one event in line with storage after another
// process changed it. Nothing is written back or republished.
func (s *Store) ApplyEventChange(ctx context.Context, kind, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == domain.EventDeleted {
		s.dropEvent(eventID)
		return
	}
	e, err := s.repos.Events.GetByID(ctx, eventID)
	if err == nil {
		err = s.hydrateEvent(ctx, e)
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.dropEvent(eventID)
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "refresh event failed", "event_id", eventID, "kind", kind, "err", err)
		return
	}
	if _, ok := s.replaceEvent(eventID, func(domain.Event) domain.Event { return *e }); ok {
		return
	}
	s.events.Update(func(cur []domain.Event) []domain.Event {
		return append([]domain.Event{*e}, cur...)
	})
}

// AddEvent puts e at the head of the feed. An event with the same id is replaced.
func (s *Store) AddEvent(ctx context.Context, e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Likes = append([]string{}, e.Likes...)
	e.Comments = append([]domain.Comment{}, e.Comments...)
	s.events.Update(func(cur []domain.Event) []domain.Event {
		next := make([]domain.Event, 0, len(cur)+1)
		next = append(next, e)
		for _, other := range cur {
			if other.ID != e.ID {
				next = append(next, other)
			}
		}
		return next
	})

	if err := s.repos.Events.Upsert(ctx, &e); err != nil {
		s.logger.WarnContext(ctx, "persist event failed", "event_id", e.ID, "err", err)
		return
	}
	for _, userID := range e.Likes {
		s.persistLike(ctx, e.ID, userID)
	}
	for i := range e.Comments {
		if err := s.repos.Comments.Upsert(ctx, e.ID, &e.Comments[i]); err != nil {
			s.logger.WarnContext(ctx, "persist comment failed", "event_id", e.ID, "comment_id", e.Comments[i].ID, "err", err)
		}
	}
	s.publishEventChange(ctx, domain.EventCreated, e.ID)
}

// UpdateEvent replaces the event with e's id. It is a no-op when no such event exists.
func (s *Store) UpdateEvent(ctx context.Context, e domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.replaceEvent(e.ID, func(domain.Event) domain.Event {
		e.Likes = append([]string{}, e.Likes...)
		e.Comments = append([]domain.Comment{}, e.Comments...)
		return e
	})
	if !ok {
		return false
	}
	if err := s.repos.Events.Update(ctx, &e); err != nil {
		s.logger.WarnContext(ctx, "persist event update failed", "event_id", e.ID, "err", err)
	}
	s.publishEventChange(ctx, domain.EventUpdated, e.ID)
	return true
}

// LikeEvent toggles userID in the event's like set and returns the new snapshot.
func (s *Store) LikeEvent(ctx context.Context, eventID, userID string) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var liked bool
	updated, ok := s.replaceEvent(eventID, func(e domain.Event) domain.Event {
		likes := make([]string, 0, len(e.Likes)+1)
		for _, id := range e.Likes {
			if id != userID {
				likes = append(likes, id)
			}
		}
		if len(likes) == len(e.Likes) {
			likes = append(likes, userID)
			liked = true
		}
		e.Likes = likes
		return e
	})
	if !ok {
		return domain.Event{}, false
	}

	if liked {
		s.persistLike(ctx, eventID, userID)
	} else if err := s.repos.Likes.DeleteByEventAndUser(ctx, eventID, userID); err != nil {
		s.logger.WarnContext(ctx, "persist unlike failed", "event_id", eventID, "user_id", userID, "err", err)
	}
	s.publishEventChange(ctx, domain.EventLiked, eventID)
	return updated, true
}

// AddComment appends c to the event's comments. It is a no-op when the event does not exist.
func (s *Store) AddComment(ctx context.Context, eventID string, c domain.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.replaceEvent(eventID, func(e domain.Event) domain.Event {
		comments := make([]domain.Comment, 0, len(e.Comments)+1)
		comments = append(comments, e.Comments...)
		e.Comments = append(comments, c)
		return e
	})
	if !ok {
		return false
	}
	if err := s.repos.Comments.Upsert(ctx, eventID, &c); err != nil {
		s.logger.WarnContext(ctx, "persist comment failed", "event_id", eventID, "comment_id", c.ID, "err", err)
	}
	s.publishEventChange(ctx, domain.EventCommented, eventID)
	return true
}

// DeleteEvent drops the event together with the messages scoped to it.
// Storage cascades the delete to likes, comments and messages.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dropEvent(eventID) {
		return false
	}
	if err := s.repos.Events.Delete(ctx, eventID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "persist event delete failed", "event_id", eventID, "err", err)
	}
	s.publishEventChange(ctx, domain.EventDeleted, eventID)
	return true
}

// dropEvent removes the event and the messages scoped to it from memory. mu must be held.
func (s *Store) dropEvent(eventID string) bool {
	found := false
	s.events.Update(func(cur []domain.Event) []domain.Event {
		next := make([]domain.Event, 0, len(cur))
		for _, e := range cur {
			if e.ID == eventID {
				found = true
				continue
			}
			next = append(next, e)
		}
		return next
	})
	if !found {
		return false
	}
	s.messages.Update(func(cur []domain.Message) []domain.Message {
		next := make([]domain.Message, 0, len(cur))
		for _, m := range cur {
			if m.EventID != nil && *m.EventID == eventID {
				continue
			}
			next = append(next, m)
		}
		return next
	})
	return true
}

// FilterEvents returns the feed entries matching f in the order f asks for.
func (s *Store) FilterEvents(f domain.EventFilter) []domain.Event {
	cur := s.events.Value()
	out := make([]domain.Event, 0, len(cur))
	for _, e := range cur {
		if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
			continue
		}
		if f.Sport != "" && e.Sport != f.Sport {
			continue
		}
		out = append(out, e)
	}
	switch f.Order {
	case domain.OrderByDateAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// RegisterUser stores u unless its email is taken. It does not log the user in.
func (s *Store) RegisterUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repos.Users.GetByEmail(ctx, u.Email); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "lookup email failed", "err", err)
		return domain.ErrUnavailable
	}

	if s.hasher != nil {
		hash, err := s.hasher.Hash(u.Password)
		if err != nil {
			s.logger.ErrorContext(ctx, "hash password failed", "err", err)
			return domain.ErrUnavailable
		}
		u.Password = hash
	}
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	if err := s.repos.Users.Upsert(ctx, &u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.ErrDuplicateEmail
		}
		s.logger.ErrorContext(ctx, "persist user failed", "user_id", u.ID, "err", err)
		return domain.ErrUnavailable
	}
	for _, sport := range u.Sports {
		s.persistFavoriteSport(ctx, u.ID, sport)
	}
	return nil
}

// LoginUser makes the user with exactly this email and password the session
// user. Every failure is reported as ErrInvalidCredentials.
func (s *Store) LoginUser(ctx context.Context, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		u   *domain.User
		err error
	)
	if s.hasher == nil {
		u, err = s.repos.Users.GetByCredentials(ctx, email, password)
	} else {
		u, err = s.repos.Users.GetByEmail(ctx, email)
		if err == nil && s.hasher.Compare(u.Password, password) != nil {
			u, err = nil, domain.ErrNotFound
		}
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "login lookup failed", "err", err)
		}
		return domain.ErrInvalidCredentials
	}
	s.currentUser.Set(s.sessionUser(ctx, u))
	return nil
}

// LoadCurrentUser restores the session for a known user id.
func (s *Store) LoadCurrentUser(ctx context.Context, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "load current user failed", "user_id", userID, "err", err)
		}
		return false
	}
	s.currentUser.Set(s.sessionUser(ctx, u))
	return true
}

// Logout clears the session user.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser.Set(nil)
	s.logger.DebugContext(ctx, "session cleared")
}

// GetUserByEmail looks a user up by email. The password is not returned.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, bool) {
	u, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "lookup email failed", "err", err)
		}
		return nil, false
	}
	u.Password = ""
	return u, true
}

// GetUserByID looks a user up by id. It returns ErrNotFound for unknown ids
// and ErrUnavailable when storage cannot answer. The password is not returned.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		s.logger.WarnContext(ctx, "lookup user failed", "user_id", id, "err", err)
		return nil, domain.ErrUnavailable
	}
	u.Password = ""
	return u, nil
}

// UsersCount returns the number of stored users, or 0 when storage fails.
func (s *Store) UsersCount(ctx context.Context) int {
	n, err := s.repos.Users.Count(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "count users failed", "err", err)
		return 0
	}
	return n
}

// AddFavoriteSport records sport for the user and refreshes the session user when it is the same user.
func (s *Store) AddFavoriteSport(ctx context.Context, userID, sport string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentUser.Value()
	if cur != nil && cur.ID == userID {
		for _, existing := range cur.Sports {
			if existing == sport {
				return
			}
		}
		next := *cur
		next.Sports = append(append([]string{}, cur.Sports...), sport)
		s.currentUser.Set(&next)
	}
	s.persistFavoriteSport(ctx, userID, sport)
}

// SendMessage appends m to the message collection, stores it and publishes it.
// There is no acknowledgement and no dedup.
func (s *Store) SendMessage(ctx context.Context, m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendMessage(m)
	if err := s.repos.Messages.Upsert(ctx, &m); err != nil {
		s.logger.WarnContext(ctx, "persist message failed", "message_id", m.ID, "err", err)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishMessage(ctx, &m); err != nil {
			s.logger.WarnContext(ctx, "publish message failed", "message_id", m.ID, "err", err)
		}
	}
}

// ReceiveMessage merges a message published by another process. Messages
// whose id is already known are ignored.
func (s *Store) ReceiveMessage(ctx context.Context, m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, known := range s.messages.Value() {
		if known.ID == m.ID {
			return false
		}
	}
	s.appendMessage(m)
	if err := s.repos.Messages.Upsert(ctx, &m); err != nil {
		s.logger.WarnContext(ctx, "persist received message failed", "message_id", m.ID, "err", err)
	}
	return true
}

// MarkMessageRead flags the message as read.
func (s *Store) MarkMessageRead(ctx context.Context, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	s.messages.Update(func(cur []domain.Message) []domain.Message {
		next := make([]domain.Message, len(cur))
		copy(next, cur)
		for i := range next {
			if next[i].ID == messageID {
				next[i].Read = true
				found = true
			}
		}
		return next
	})
	if !found {
		return false
	}
	if err := s.repos.Messages.MarkRead(ctx, messageID); err != nil {
		s.logger.WarnContext(ctx, "persist message read failed", "message_id", messageID, "err", err)
	}
	return true
}

// Conversation returns the messages exchanged between a and b, oldest first.
// A nil eventID returns the conversation across every event scope.
func (s *Store) Conversation(a, b string, eventID *string) []domain.Message {
	var out []domain.Message
	for _, m := range s.messages.Value() {
		if m.InConversation(a, b, eventID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// UnreadCount returns how many messages addressed to userID are unread.
func (s *Store) UnreadCount(userID string) int {
	n := 0
	for _, m := range s.messages.Value() {
		if m.ReceiverID == userID && !m.Read {
			n++
		}
	}
	return n
}

// replaceEvent swaps the event with id for fn's result. mu must be held.
func (s *Store) replaceEvent(id string, fn func(domain.Event) domain.Event) (domain.Event, bool) {
	var (
		updated domain.Event
		found   bool
	)
	s.events.Update(func(cur []domain.Event) []domain.Event {
		idx := -1
		for i := range cur {
			if cur[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return cur
		}
		found = true
		next := make([]domain.Event, len(cur))
		copy(next, cur)
		updated = fn(cur[idx])
		next[idx] = updated
		return next
	})
	return updated, found
}

func (s *Store) appendMessage(m domain.Message) {
	s.messages.Update(func(cur []domain.Message) []domain.Message {
		next := make([]domain.Message, 0, len(cur)+1)
		next = append(next, cur...)
		return append(next, m)
	})
}

func (s *Store) persistLike(ctx context.Context, eventID, userID string) {
	like := &domain.Like{ID: s.newID(), EventID: eventID, UserID: userID, LikedAt: s.now()}
	if err := s.repos.Likes.Upsert(ctx, like); err != nil {
		s.logger.WarnContext(ctx, "persist like failed", "event_id", eventID, "user_id", userID, "err", err)
	}
}

func (s *Store) persistFavoriteSport(ctx context.Context, userID, sport string) {
	fs := &domain.FavoriteSport{ID: s.newID(), UserID: userID, Sport: sport, AddedAt: s.now()}
	if err := s.repos.Sports.Upsert(ctx, fs); err != nil {
		s.logger.WarnContext(ctx, "persist favorite sport failed", "user_id", userID, "err", err)
	}
}

// sessionUser strips the password and attaches favorite sports.
func (s *Store) sessionUser(ctx context.Context, u *domain.User) *domain.User {
	u.Password = ""
	u.Sports = []string{}
	sports, err := s.repos.Sports.ListByUser(ctx, u.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "load favorite sports failed", "user_id", u.ID, "err", err)
		return u
	}
	for _, fs := range sports {
		u.Sports = append(u.Sports, fs.Sport)
	}
	return u
}

func (s *Store) publishEventChange(ctx context.Context, kind, eventID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishEventChange(ctx, kind, eventID); err != nil {
		s.logger.WarnContext(ctx, "publish event change failed", "event_id", eventID, "kind", kind, "err", err)
	}
}
