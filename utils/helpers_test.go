package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andrewpaige1/tarjetas-api/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := Subject(r)
	assert.False(t, ok)

	r = r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{Subject: "auth0|ana"}))
	sub, ok := Subject(r)
	assert.True(t, ok)
	assert.Equal(t, "auth0|ana", sub)
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Viaje"}`))
	require.NoError(t, DecodeJSON(r.Body, &body, false))
	assert.Equal(t, "Viaje", body.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nombre":"x"}`))
	assert.Error(t, DecodeJSON(r.Body, &body, false))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.NoError(t, DecodeJSON(r.Body, &body, true))
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.Error(t, DecodeJSON(r.Body, &body, false))
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"id": "abc"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, w.Body.String())
}
