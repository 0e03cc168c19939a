package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/export"
	"github.com/andrewpaige1/tarjetas-api/models"
	"github.com/andrewpaige1/tarjetas-api/utils"
)

// GET /api/decks
// Served from the deck cache; ?refresh=1 asks for a revalidation.
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	user, err := h.Auth.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, r, "ListDecks", err)
		return
	}
	snap := h.Decks.Get(r.Context(), user.ID)
	if r.URL.Query().Get("refresh") == "1" {
		snap = h.Decks.Revalidate(r.Context(), user.ID)
	}
	if snap.Err != nil && snap.Decks == nil {
		h.fail(w, r, "ListDecks", snap.Err)
		return
	}
	if snap.Decks == nil {
		snap.Decks = []cards.DeckSummary{}
	}
	utils.WriteJSON(w, http.StatusOK, snap)
}

// POST /api/decks
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Deck name is required", http.StatusBadRequest)
		return
	}

	deck, err := h.Cards.CreateDeck(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, "CreateDeck", err)
		return
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusCreated, deck)
}

// GET /api/decks/{deckID}
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deckID := r.PathValue("deckID")
	deck, err := h.Cards.GetDeck(r.Context(), deckID)
	if err != nil {
		h.fail(w, r, "GetDeck", err)
		return
	}
	members, err := h.Cards.DeckCards(r.Context(), deckID)
	if err != nil {
		h.fail(w, r, "GetDeck", err)
		return
	}
	if members == nil {
		members = []cards.DeckCardView{}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deck":  deck,
		"cards": members,
	})
}

// PUT /api/decks/{deckID}
func (h *Handler) UpdateDeck(w http.ResponseWriter, r *http.Request) {
	deckID := r.PathValue("deckID")
	var req struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Deck name is required", http.StatusBadRequest)
		return
	}

	if err := h.Cards.UpdateDeckName(r.Context(), deckID, req.Name); err != nil {
		h.fail(w, r, "UpdateDeck", err)
		return
	}
	deck, err := h.Cards.GetDeck(r.Context(), deckID)
	if err != nil {
		h.fail(w, r, "UpdateDeck", err)
		return
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusOK, deck)
}

// DELETE /api/decks/{deckID}
// Cards in the deck survive the delete.
func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.Cards.DeleteDeck(r.Context(), r.PathValue("deckID")); err != nil {
		h.fail(w, r, "DeleteDeck", err)
		return
	}
	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/decks/{deckID}/cards/{cardID}
// Deleting from Uncategorized removes the card for good; from any other
// deck the card moves to Uncategorized.
func (h *Handler) DeleteCardFromDeck(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Cards.DeleteCardFromDeck(r.Context(), r.PathValue("deckID"), r.PathValue("cardID"))
	if err != nil {
		h.fail(w, r, "DeleteCardFromDeck", err)
		return
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// GET /api/decks/{deckID}/export?page=N
func (h *Handler) ExportDeck(w http.ResponseWriter, r *http.Request) {
	if h.Export == nil {
		http.Error(w, "Export is not available", http.StatusServiceUnavailable)
		return
	}
	deckID := r.PathValue("deckID")
	deck, err := h.Cards.GetDeck(r.Context(), deckID)
	if err != nil {
		h.fail(w, r, "ExportDeck", err)
		return
	}
	members, err := h.Cards.DeckCards(r.Context(), deckID)
	if err != nil {
		h.fail(w, r, "ExportDeck", err)
		return
	}

	sheetCards := make([]export.Card, 0, len(members))
	for _, m := range members {
		sheetCards = append(sheetCards, export.Card{Spanish: m.SpanishWord, English: m.EnglishWord, ImageURL: m.Image()})
	}
	pages := export.Pages(sheetCards)

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 || page > len(pages) {
			h.fail(w, r, "ExportDeck", badRequest{fmt.Sprintf("page must be between 1 and %d", len(pages))})
			return
		}
	}

	title := deckTitle(deck)
	if len(pages) > 1 {
		title = fmt.Sprintf("%s (%d/%d)", title, page, len(pages))
	}
	sheet, err := h.Export.Render(r.Context(), title, pages[page-1])
	if err != nil {
		h.fail(w, r, "ExportDeck", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%d.jpg"`, fileSlug(deck.Name), page))
	w.Header().Set("X-Page-Count", strconv.Itoa(len(pages)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(sheet)
}

func deckTitle(d *models.Deck) string {
	if d.Kind != models.DeckOrdinary {
		return d.Kind.DisplayName()
	}
	return d.Name
}

func fileSlug(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "deck"
	}
	return slug
}
