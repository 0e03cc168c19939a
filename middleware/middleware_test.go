package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andrewpaige1/tarjetas-api/auth"
	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/andrewpaige1/tarjetas-api/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedValidator map[string]*auth.Principal

func (f fixedValidator) Validate(ctx context.Context, token string) (*auth.Principal, error) {
	if p, ok := f[token]; ok {
		return p, nil
	}
	return nil, errors.New("unknown token")
}

func echoSubject(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(p.Subject))
}

func TestEnsureValidToken(t *testing.T) {
	mw := EnsureValidToken(fixedValidator{"good": {Subject: "auth0|ana"}}, logger.Nop())
	h := mw(http.HandlerFunc(echoSubject))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, "anonymous"},
		{"valid", "Bearer good", http.StatusOK, "auth0|ana"},
		{"invalid", "Bearer bad", http.StatusUnauthorized, "Invalid token\n"},
		{"malformed", "Basic abc", http.StatusUnauthorized, "Malformed Authorization header\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/decks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
		})
	}
}

type staticSource struct{ user *models.User }

func (s staticSource) LocalUser(ctx context.Context, p auth.Principal) (*models.User, error) {
	return s.user, nil
}

func (s staticSource) VerifyUser(ctx context.Context, p auth.Principal) (*models.User, error) {
	return s.user, nil
}

func TestSyncUserMiddleware(t *testing.T) {
	called := false
	next := func(w http.ResponseWriter, r *http.Request) { called = true }

	anon := SyncUserMiddleware(auth.NewCache(staticSource{user: &models.User{ID: "u"}}))(next)
	rec := httptest.NewRecorder()
	anon(rec, httptest.NewRequest(http.MethodPost, "/api/decks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	unknown := SyncUserMiddleware(auth.NewCache(staticSource{}))(next)
	req := httptest.NewRequest(http.MethodPost, "/api/decks", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{Subject: "s"}))
	rec = httptest.NewRecorder()
	unknown(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	known := SyncUserMiddleware(auth.NewCache(staticSource{user: &models.User{ID: "u"}}))(next)
	rec = httptest.NewRecorder()
	known(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, incoming, seen)
}
