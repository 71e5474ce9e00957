package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apao/internal/delivery/http/helpers"
	"apao/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	if data != nil && envelope.Error == nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Error
}

func TestAuthController_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "created", body: `{"email":"alice@x.com","password":"pw1","name":"Alice"}`, wantStatus: http.StatusCreated},
		{name: "duplicate email", body: `{"email":"alice@x.com","password":"pw1","name":"Alice"}`, serviceErr: domain.ErrDuplicateEmail, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
		{name: "storage down", body: `{"email":"alice@x.com","password":"pw1","name":"Alice"}`, serviceErr: domain.ErrUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: helpers.ErrCodeUnavailable},
		{name: "bad email", body: `{"email":"alice","password":"pw1","name":"Alice"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "missing fields", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeSession()
			svc.registerErr = tt.serviceErr
			c := NewAuthController(testLogger, svc, &fakeTokenIssuer{}, time.Hour)

			rr := httptest.NewRecorder()
			c.Register(rr, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			var user domain.User
			apiErr := decodeEnvelope(t, rr, &user)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, "alice@x.com", user.Email)
			assert.Nil(t, svc.current.Value(), "register must not start a session")
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	t.Run("success returns token and user", func(t *testing.T) {
		svc := newFakeSession()
		c := NewAuthController(testLogger, svc, &fakeTokenIssuer{}, time.Hour)

		rr := httptest.NewRecorder()
		c.Login(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@x.com","password":"pw1"}`)))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp LoginResponse
		require.Nil(t, decodeEnvelope(t, rr, &resp))
		assert.Equal(t, "token-u-1", resp.Token)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, "u-1", resp.User.ID)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := newFakeSession()
		svc.loginErr = domain.ErrInvalidCredentials
		c := NewAuthController(testLogger, svc, &fakeTokenIssuer{}, time.Hour)

		rr := httptest.NewRecorder()
		c.Login(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@x.com","password":"nope"}`)))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		apiErr := decodeEnvelope(t, rr, nil)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodeUnauthorized, apiErr.Code)
	})

	t.Run("token failure ends the session", func(t *testing.T) {
		svc := newFakeSession()
		c := NewAuthController(testLogger, svc, &fakeTokenIssuer{err: errors.New("no key")}, time.Hour)

		rr := httptest.NewRecorder()
		c.Login(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@x.com","password":"pw1"}`)))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.True(t, svc.loggedOut)
		assert.Nil(t, svc.current.Value())
	})
}

func TestAuthController_MeAndLogout(t *testing.T) {
	svc := newFakeSession()
	c := NewAuthController(testLogger, svc, &fakeTokenIssuer{}, time.Hour)

	rr := httptest.NewRecorder()
	c.Me(rr, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	svc.current.Set(&domain.User{ID: "u-1", Name: "Alice"})
	rr = httptest.NewRecorder()
	c.Me(rr, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var me domain.User
	require.Nil(t, decodeEnvelope(t, rr, &me))
	assert.Equal(t, "Alice", me.Name)

	rr = httptest.NewRecorder()
	c.AddFavoriteSport(rr, httptest.NewRequest(http.MethodPost, "/me/sports", strings.NewReader(`{"sport":" Tenis "}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Tenis", svc.lastSport)

	rr = httptest.NewRecorder()
	c.Logout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, svc.loggedOut)
}
