package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/andrewpaige1/tarjetas-api/auth"
)

// Subject returns the identity provider subject of the caller.
func Subject(r *http.Request) (string, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok || p.Subject == "" {
		return "", false
	}
	return p.Subject, true
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a single JSON object and rejects unknown fields. An
// empty body leaves v untouched when allowEmpty is set.
func DecodeJSON(body io.Reader, v interface{}, allowEmpty bool) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
