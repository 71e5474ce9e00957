package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"apao/internal/delivery/http/helpers"
	"apao/internal/delivery/http/middleware"
	"apao/internal/domain"
	"apao/internal/services"
	"apao/internal/store"
)

const dateLayout = "2006-01-02"

// EventService is the part of the session service the event endpoints use.
type EventService interface {
	Events() store.Stream[[]domain.Event]
	FilterEvents(f domain.EventFilter) []domain.Event
	AddEvent(ctx context.Context, in services.NewEventInput) (domain.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	LikeEvent(ctx context.Context, eventID string) (domain.Event, error)
	AddComment(ctx context.Context, eventID, text string) (domain.Comment, error)
}

// CreateEventRequest is the request body for POST /events.
// Date is a calendar day (YYYY-MM-DD); Time is free text such as "18:00".
type CreateEventRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Sport           string  `json:"sport"`
	Location        string  `json:"location"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	MaxParticipants int     `json:"max_participants"`
	ImageURL        *string `json:"image_url"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if strings.TrimSpace(c.Sport) == "" {
		errs = append(errs, "sport is required")
	}
	if c.Date == "" {
		errs = append(errs, "date is required")
	} else if _, err := time.Parse(dateLayout, c.Date); err != nil {
		errs = append(errs, "date must be YYYY-MM-DD")
	}
	if c.MaxParticipants < 0 {
		errs = append(errs, "max_participants must not be negative")
	}
	return errs
}

// CommentRequest is the request body for POST /events/{eventID}/comments
type CommentRequest struct {
	Text string `json:"text"`
}

// Validate implements Validator.
func (c CommentRequest) Validate() []string {
	if strings.TrimSpace(c.Text) == "" {
		return []string{"text is required"}
	}
	return nil
}

// ListEventsResponse is the response body for GET /events.
type ListEventsResponse struct {
	Items      []domain.Event         `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// LikeResponse is the response body for POST /events/{eventID}/like.
type LikeResponse struct {
	Event domain.Event `json:"event"`
	Liked bool         `json:"liked"`
}

type EventController struct {
	Logger  *slog.Logger
	Service EventService
}

func NewEventController(logger *slog.Logger, svc EventService) *EventController {
	return &EventController{Logger: logger, Service: svc}
}

// ListEvents godoc
// @Summary List events
// @Description ListEvents returns the feed filtered by the sport and organizer query parameters. order=date sorts by the day the event takes place.
// @Tags events
// @Produce json
// @Param sport query string false "Sport name"
// @Param organizer query string false "Organizer user id"
// @Param order query string false "created (default) or date"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse{data=ListEventsResponse}
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Sport:       q.Get("sport"),
		OrganizerID: q.Get("organizer"),
	}
	if q.Get("order") == "date" {
		filter.Order = domain.OrderByDateAsc
	}
	params := helpers.ParsePagination(r)
	events := c.Service.FilterEvents(filter)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Items:      domain.Paginate(events, params),
		Pagination: helpers.NewPaginationMeta(params, len(events)),
	})
}

// StreamEvents godoc
// @Summary Stream the event feed
// @Description StreamEvents pushes the whole feed as a server-sent event every time it changes.
// @Tags events
// @Produce text/event-stream
// @Success 200 {array} domain.Event "one \"events\" message per feed change"
// @Router /events/stream [get]
func (c *EventController) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snapshot := range c.Service.Events().Subscribe(r.Context()) {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			c.Logger.ErrorContext(r.Context(), "encode event snapshot", "err", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: events\ndata: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description CreateEvent creates an event organized by the session user.
// @Tags events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse{data=domain.Event}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	date, _ := time.Parse(dateLayout, req.Date)
	event, err := c.Service.AddEvent(r.Context(), services.NewEventInput{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Sport:           strings.TrimSpace(req.Sport),
		Location:        req.Location,
		Date:            date,
		Time:            req.Time,
		MaxParticipants: req.MaxParticipants,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description DeleteEvent removes an event. Only its organizer may delete it.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteEvent(r.Context(), r.PathValue("eventID")); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikeEvent godoc
// @Summary Toggle a like
// @Description LikeEvent toggles the session user's like.
// @Tags events
// @Security BearerAuth
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse{data=LikeResponse}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/like [post]
func (c *EventController) LikeEvent(w http.ResponseWriter, r *http.Request) {
	event, err := c.Service.LikeEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	helpers.WriteJSONSuccess(w, http.StatusOK, LikeResponse{Event: event, Liked: event.LikedBy(userID)})
}

// AddComment godoc
// @Summary Comment on an event
// @Description AddComment appends a comment by the session user.
// @Tags events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID"
// @Param body body CommentRequest true "Comment"
// @Success 201 {object} helpers.APIResponse{data=domain.Comment}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/comments [post]
func (c *EventController) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	comment, err := c.Service.AddComment(r.Context(), r.PathValue("eventID"), strings.TrimSpace(req.Text))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, comment)
}
