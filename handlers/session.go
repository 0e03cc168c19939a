package handlers

import (
	"net/http"

	"github.com/andrewpaige1/tarjetas-api/auth"
	"github.com/andrewpaige1/tarjetas-api/utils"
)

// POST /api/session/signin
// Verifies the caller with the identity provider and drops any deck data
// cached under a previous identity.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFrom(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user := h.Auth.Refresh(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.Decks.IdentityChanged(user.ID)
	snap := h.Decks.Get(r.Context(), user.ID)

	h.Log.Info("SignIn", "user", user.ID, "decks", len(snap.Decks))
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"decks": snap.Decks,
	})
}

// POST /api/session/signout
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	subject, ok := utils.Subject(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if user := h.Auth.GetUser(r.Context()); user != nil {
		h.Decks.IdentityChanged(user.ID)
	}
	h.Auth.ClearCache(subject)
	w.WriteHeader(http.StatusNoContent)
}
