package handlers

import (
	"net/http"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/utils"
)

// POST /api/favorites
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, "AddFavorite", err)
		return
	}
	card, err := h.Cards.AddCardToFavorites(r.Context(), req.EnglishWord, req.SpanishWord, req.ImageURL, req.IsAIGenerated)
	if err != nil {
		h.fail(w, r, "AddFavorite", err)
		return
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusOK, card)
}

// DELETE /api/favorites
// The card is kept and filed in Uncategorized.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, "RemoveFavorite", err)
		return
	}
	if err := h.Cards.RemoveCardFromFavorites(r.Context(), req.EnglishWord, req.SpanishWord); err != nil {
		h.fail(w, r, "RemoveFavorite", err)
		return
	}
	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/favorites/check?english=..&spanish=..
func (h *Handler) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	english := strings.TrimSpace(r.URL.Query().Get("english"))
	spanish := strings.TrimSpace(r.URL.Query().Get("spanish"))
	if english == "" || spanish == "" {
		http.Error(w, "english and spanish are required", http.StatusBadRequest)
		return
	}
	ok, err := h.Cards.IsCardInFavorites(r.Context(), english, spanish)
	if err != nil {
		h.fail(w, r, "CheckFavorite", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"is_favorite": ok})
}
