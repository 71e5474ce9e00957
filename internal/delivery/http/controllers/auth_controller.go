package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"apao/internal/delivery/http/helpers"
	"apao/internal/domain"
	"apao/internal/store"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthService is the part of the session service the auth endpoints use.
type AuthService interface {
	RegisterUser(ctx context.Context, email, password, name string) (*domain.User, error)
	LoginUser(ctx context.Context, email, password string) (*domain.User, error)
	Logout(ctx context.Context)
	CurrentUser() store.Stream[*domain.User]
	AddFavoriteSport(ctx context.Context, sport string) error
}

// RegisterRequest is the request body for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate implements Validator.
func (s RegisterRequest) Validate() []string {
	var errs []string
	email := strings.TrimSpace(s.Email)
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	if s.Password == "" {
		errs = append(errs, "password is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Email) == "" {
		errs = append(errs, "email is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// LoginResponse is the response body for POST /auth/login
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"user"`
}

// FavoriteSportRequest is the request body for POST /me/sports
type FavoriteSportRequest struct {
	Sport string `json:"sport"`
}

// Validate implements Validator.
func (f FavoriteSportRequest) Validate() []string {
	if strings.TrimSpace(f.Sport) == "" {
		return []string{"sport is required"}
	}
	return nil
}

type AuthController struct {
	Logger      *slog.Logger
	Service     AuthService
	Tokens      domain.TokenIssuer
	TokenExpiry time.Duration
}

func NewAuthController(logger *slog.Logger, svc AuthService, tokens domain.TokenIssuer, tokenExpiry time.Duration) *AuthController {
	return &AuthController{Logger: logger, Service: svc, Tokens: tokens, TokenExpiry: tokenExpiry}
}

// Register godoc
// @Summary Register a user
// @Description Register creates a user. It does not start a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} helpers.APIResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.RegisterUser(r.Context(), strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Login starts the session and returns a bearer token bound to it.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} helpers.APIResponse{data=LoginResponse}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.LoginUser(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	token, err := c.Tokens.Issue(user.ID, user.Email, c.TokenExpiry)
	if err != nil {
		c.Service.Logout(r.Context())
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LoginResponse{Token: token, TokenType: "Bearer", User: user})
}

// Logout godoc
// @Summary Log out
// @Description Logout ends the session.
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /auth/logout [post]
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.Service.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Me godoc
// @Summary Current user
// @Description Me returns the session user.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} helpers.APIResponse{data=domain.User}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me [get]
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user := c.Service.CurrentUser().Value()
	if user == nil {
		helpers.WriteServiceError(w, r, c.Logger, domain.ErrUnauthenticated)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// AddFavoriteSport godoc
// @Summary Add a favorite sport
// @Description AddFavoriteSport adds a sport to the session user's favorites.
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body FavoriteSportRequest true "Sport"
// @Success 200 {object} helpers.APIResponse{data=domain.User}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/sports [post]
func (c *AuthController) AddFavoriteSport(w http.ResponseWriter, r *http.Request) {
	var req FavoriteSportRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.AddFavoriteSport(r.Context(), strings.TrimSpace(req.Sport)); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, c.Service.CurrentUser().Value())
}
