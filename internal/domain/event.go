package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the store could not reach its persistence layer.
var ErrUnavailable = errors.New("storage unavailable")

// ErrForbidden is returned when the session user may not act on a resource.
var ErrForbidden = errors.New("forbidden")

// Event represents a user-organized sporting activity.
// MaxParticipants and CurrentParticipants are stored as-is; nothing joins an event yet.
type Event struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Sport               string    `json:"sport"`
	Location            string    `json:"location"`
	Date                time.Time `json:"date"`
	Time                string    `json:"time"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	OrganizerID         string    `json:"organizer_id"`
	OrganizerName       string    `json:"organizer_name"`
	ImageURL            *string   `json:"image_url,omitempty"`
	Likes               []string  `json:"likes"`
	Comments            []Comment `json:"comments"`
	CreatedAt           time.Time `json:"created_at"`
	Status              string    `json:"status"`
}

// LikedBy reports whether userID is in the event's like set.
func (e *Event) LikedBy(userID string) bool {
	for _, id := range e.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Comment is an append-only remark on exactly one event.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Like is a row of the likes table: one (event, user) membership.
type Like struct {
	ID      string    `json:"id"`
	EventID string    `json:"event_id"`
	UserID  string    `json:"user_id"`
	LikedAt time.Time `json:"liked_at"`
}

// EventOrder selects the sort order of an event listing.
type EventOrder int

const (
	// OrderByCreatedDesc lists newest events first.
	OrderByCreatedDesc EventOrder = iota
	// OrderByDateAsc lists events by the day they take place.
	OrderByDateAsc
)

// EventFilter narrows an event listing. Empty fields match everything.
type EventFilter struct {
	OrganizerID string
	Sport       string
	Order       EventOrder
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Upsert(ctx context.Context, event *Event) error
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
}

// LikeRepository defines the interface for like storage
type LikeRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]*Like, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	Get(ctx context.Context, eventID, userID string) (*Like, error)
	Upsert(ctx context.Context, like *Like) error
	Delete(ctx context.Context, id string) error
	DeleteByEventAndUser(ctx context.Context, eventID, userID string) error
}

// CommentRepository defines the interface for comment storage.
// Comments are keyed by the event they belong to.
type CommentRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]*Comment, error)
	ListByEventChronological(ctx context.Context, eventID string) ([]*Comment, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	Upsert(ctx context.Context, eventID string, comment *Comment) error
	Delete(ctx context.Context, id string) error
}
