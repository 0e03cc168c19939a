package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/imagestore"
	"github.com/andrewpaige1/tarjetas-api/models"
	"github.com/andrewpaige1/tarjetas-api/utils"
)

type cardRequest struct {
	EnglishWord   string   `json:"english_word"`
	SpanishWord   string   `json:"spanish_word"`
	ImageURL      *string  `json:"image_url"`
	IsAIGenerated bool     `json:"is_ai_generated"`
	DeckIDs       []string `json:"deck_ids,omitempty"`
}

func (c *cardRequest) validate() error {
	c.EnglishWord = strings.TrimSpace(c.EnglishWord)
	c.SpanishWord = strings.TrimSpace(c.SpanishWord)
	if c.EnglishWord == "" || c.SpanishWord == "" {
		return badRequest{"english_word and spanish_word are required"}
	}
	return nil
}

// GET /api/flashcards
func (h *Handler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	list, err := h.Cards.ListFlashcards(r.Context())
	if err != nil {
		h.fail(w, r, "ListFlashcards", err)
		return
	}
	if list == nil {
		list = []models.Flashcard{}
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

type flashcardView struct {
	*models.Flashcard
	DeckCount int64 `json:"deck_count"`
}

// GET /api/flashcards/{cardID}
func (h *Handler) GetFlashcard(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("cardID")
	card, err := h.Cards.Flashcard(r.Context(), cardID)
	if err != nil {
		h.fail(w, r, "GetFlashcard", err)
		return
	}
	count, err := h.Cards.DeckCountForCard(r.Context(), cardID)
	if err != nil {
		h.fail(w, r, "GetFlashcard", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, flashcardView{Flashcard: card, DeckCount: count})
}

// POST /api/flashcards
// Creates the card (or returns the existing one for the same word pair) and
// files it in the requested decks.
func (h *Handler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, "CreateFlashcard", err)
		return
	}

	card, err := h.Cards.CreateFlashcard(r.Context(), req.EnglishWord, req.SpanishWord, req.ImageURL, req.IsAIGenerated)
	if err != nil {
		h.fail(w, r, "CreateFlashcard", err)
		return
	}
	if len(req.DeckIDs) > 0 {
		if err := h.Cards.AddCardToDecks(r.Context(), card.ID, req.DeckIDs); err != nil {
			h.fail(w, r, "CreateFlashcard", err)
			return
		}
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusCreated, card)
}

// POST /api/flashcards/{cardID}/decks
func (h *Handler) AddCardToDecks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeckIDs []string `json:"deck_ids"`
	}
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.DeckIDs) == 0 {
		http.Error(w, "deck_ids is required", http.StatusBadRequest)
		return
	}
	if err := h.Cards.AddCardToDecks(r.Context(), r.PathValue("cardID"), req.DeckIDs); err != nil {
		h.fail(w, r, "AddCardToDecks", err)
		return
	}
	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/flashcards/{cardID}/image
// Multipart form with an "image" file part.
func (h *Handler) UploadFlashcardImage(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("cardID")
	user, err := h.Auth.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, r, "UploadFlashcardImage", err)
		return
	}
	if _, err := h.Cards.Flashcard(r.Context(), cardID); err != nil {
		h.fail(w, r, "UploadFlashcardImage", err)
		return
	}

	data, contentType, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, "UploadFlashcardImage", err)
		return
	}
	key, err := imagestore.CardImageKey(user.ID, cardID, contentType)
	if err != nil {
		h.fail(w, r, "UploadFlashcardImage", badRequest{err.Error()})
		return
	}
	url, err := h.Images.Put(r.Context(), key, contentType, bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, imagestore.ErrDisabled) {
			err = upstreamError{err}
		}
		h.fail(w, r, "UploadFlashcardImage", err)
		return
	}

	if err := h.Cards.UpdateFlashcardImage(r.Context(), cardID, &url); err != nil {
		h.fail(w, r, "UploadFlashcardImage", err)
		return
	}
	card, err := h.Cards.Flashcard(r.Context(), cardID)
	if err != nil {
		h.fail(w, r, "UploadFlashcardImage", err)
		return
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusOK, card)
}

// DELETE /api/flashcards/{cardID}/image
func (h *Handler) ClearFlashcardImage(w http.ResponseWriter, r *http.Request) {
	if err := h.Cards.UpdateFlashcardImage(r.Context(), r.PathValue("cardID"), nil); err != nil {
		h.fail(w, r, "ClearFlashcardImage", err)
		return
	}
	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/flashcards/{cardID}
func (h *Handler) DeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	if err := h.Cards.DeleteFlashcard(r.Context(), r.PathValue("cardID")); err != nil {
		h.fail(w, r, "DeleteFlashcard", err)
		return
	}
	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}

// readUpload reads the "image" part of a multipart form and sniffs its type.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	limit := h.maxUpload()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", badRequest{"Invalid multipart form"}
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", badRequest{"image file is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", badRequest{"Could not read image"}
	}
	if int64(len(data)) > limit {
		return nil, "", badRequest{"Image too large"}
	}

	// The declared type is only trusted when sniffing gives up.
	contentType := http.DetectContentType(data)
	if contentType == "application/octet-stream" {
		if declared, _, err := mime.ParseMediaType(header.Header.Get("Content-Type")); err == nil {
			contentType = declared
		}
	}
	if _, ok := imagestore.Extension(contentType); !ok {
		return nil, "", badRequest{"Unsupported image type"}
	}
	return data, contentType, nil
}
