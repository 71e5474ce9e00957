package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "apao/docs"
	"apao/internal/delivery/http/controllers"
	"apao/internal/delivery/http/helpers"
)

// NewRouter initializes the HTTP router with all application routes.
// requireSession wraps every route that acts on behalf of the session user.
func NewRouter(
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	messageController *controllers.MessageController,
	requireSession func(http.HandlerFunc) http.HandlerFunc,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("POST /auth/register", authController.Register)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("POST /auth/logout", requireSession(authController.Logout))
	mux.HandleFunc("GET /me", requireSession(authController.Me))
	mux.HandleFunc("POST /me/sports", requireSession(authController.AddFavoriteSport))

	// Events
	mux.HandleFunc("GET /events", eventController.ListEvents)
	mux.HandleFunc("GET /events/stream", eventController.StreamEvents)
	mux.HandleFunc("POST /events", requireSession(eventController.CreateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", requireSession(eventController.DeleteEvent))
	mux.HandleFunc("POST /events/{eventID}/like", requireSession(eventController.LikeEvent))
	mux.HandleFunc("POST /events/{eventID}/comments", requireSession(eventController.AddComment))

	// Messages
	mux.HandleFunc("POST /messages", requireSession(messageController.SendMessage))
	mux.HandleFunc("GET /messages/conversations", requireSession(messageController.ListConversations))
	mux.HandleFunc("GET /messages/with/{userID}", requireSession(messageController.Conversation))
	mux.HandleFunc("GET /messages/unread", requireSession(messageController.UnreadCount))
	mux.HandleFunc("POST /messages/{messageID}/read", requireSession(messageController.MarkRead))

	return mux
}
