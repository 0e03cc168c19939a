package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/imagestore"
	"github.com/andrewpaige1/tarjetas-api/samples"
	"github.com/andrewpaige1/tarjetas-api/utils"
)

// personalize applies the caller's customizations and hides adopted cards.
// Anonymous callers get the decks as shipped.
func (h *Handler) personalize(r *http.Request, decks []samples.Deck) ([]samples.Deck, error) {
	if h.Auth.GetUser(r.Context()) == nil {
		return decks, nil
	}
	adopted, err := h.Cards.UncategorizedPairs(r.Context())
	if err != nil {
		return nil, err
	}
	out := make([]samples.Deck, 0, len(decks))
	for _, d := range decks {
		customs, err := h.Cards.GetSampleCardCustomizations(r.Context(), d.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, samples.View(d, customs, adopted))
	}
	return out, nil
}

// GET /api/samples
func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	decks, err := h.personalize(r, samples.List())
	if err != nil {
		h.fail(w, r, "ListSamples", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, decks)
}

// GET /api/samples/{sampleID}
func (h *Handler) GetSample(w http.ResponseWriter, r *http.Request) {
	deck, ok := samples.Get(r.PathValue("sampleID"))
	if !ok {
		http.Error(w, "Sample deck not found", http.StatusNotFound)
		return
	}
	decks, err := h.personalize(r, []samples.Deck{deck})
	if err != nil {
		h.fail(w, r, "GetSample", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, decks[0])
}

type sampleCardRequest struct {
	EnglishWord string `json:"english_word"`
	SpanishWord string `json:"spanish_word"`
	ImageURL    string `json:"image_url,omitempty"`
}

// sampleCard finds the card in the personalized view, so a custom image
// replaces the shipped one.
func (h *Handler) sampleCard(r *http.Request, sampleID, english, spanish string) (samples.Card, error) {
	deck, ok := samples.Get(sampleID)
	if !ok {
		return samples.Card{}, cards.ErrNotFound
	}
	card, ok := deck.Contains(strings.TrimSpace(english), strings.TrimSpace(spanish))
	if !ok {
		return samples.Card{}, cards.ErrNotFound
	}
	customs, err := h.Cards.GetSampleCardCustomizations(r.Context(), sampleID)
	if err != nil {
		return samples.Card{}, err
	}
	for _, c := range customs {
		if c.EnglishWord == card.EnglishWord && c.SpanishWord == card.SpanishWord && c.ImageURL != "" {
			card.ImageURL = c.ImageURL
			card.Customized = true
			break
		}
	}
	return card, nil
}

// POST /api/samples/{sampleID}/adopt
// Copies a sample card into the caller's Uncategorized deck. The card then
// disappears from the sample deck view.
func (h *Handler) AdoptSampleCard(w http.ResponseWriter, r *http.Request) {
	var req sampleCardRequest
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	card, err := h.sampleCard(r, r.PathValue("sampleID"), req.EnglishWord, req.SpanishWord)
	if err != nil {
		h.fail(w, r, "AdoptSampleCard", err)
		return
	}

	var image *string
	if card.ImageURL != "" {
		image = &card.ImageURL
	}
	created, err := h.Cards.CopySampleCardToUncategorized(r.Context(), card.EnglishWord, card.SpanishWord, image)
	if err != nil {
		h.fail(w, r, "AdoptSampleCard", err)
		return
	}
	h.changed(r)
	utils.WriteJSON(w, http.StatusCreated, created)
}

// PUT /api/samples/{sampleID}/customizations
// Accepts JSON with an image_url, or a multipart form with english_word,
// spanish_word and an "image" file.
func (h *Handler) CustomizeSampleCard(w http.ResponseWriter, r *http.Request) {
	sampleID := r.PathValue("sampleID")
	user, err := h.Auth.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, r, "CustomizeSampleCard", err)
		return
	}

	var req sampleCardRequest
	var upload []byte
	var contentType string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		upload, contentType, err = h.readUpload(w, r)
		if err != nil {
			h.fail(w, r, "CustomizeSampleCard", err)
			return
		}
		req.EnglishWord = r.FormValue("english_word")
		req.SpanishWord = r.FormValue("spanish_word")
	} else if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := h.sampleCard(r, sampleID, req.EnglishWord, req.SpanishWord)
	if err != nil {
		h.fail(w, r, "CustomizeSampleCard", err)
		return
	}

	imageURL := strings.TrimSpace(req.ImageURL)
	if upload != nil {
		key, err := imagestore.SampleImageKey(user.ID, sampleID, contentType)
		if err != nil {
			h.fail(w, r, "CustomizeSampleCard", badRequest{err.Error()})
			return
		}
		imageURL, err = h.Images.Put(r.Context(), key, contentType, bytes.NewReader(upload))
		if err != nil {
			if !errors.Is(err, imagestore.ErrDisabled) {
				err = upstreamError{err}
			}
			h.fail(w, r, "CustomizeSampleCard", err)
			return
		}
	}
	if imageURL == "" {
		h.fail(w, r, "CustomizeSampleCard", badRequest{"image_url or an image file is required"})
		return
	}

	if err := h.Cards.SaveSampleCardCustomization(r.Context(), sampleID, card.EnglishWord, card.SpanishWord, imageURL); err != nil {
		h.fail(w, r, "CustomizeSampleCard", err)
		return
	}
	card.ImageURL = imageURL
	card.Customized = true
	utils.WriteJSON(w, http.StatusOK, card)
}
