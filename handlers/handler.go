package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrewpaige1/tarjetas-api/ai"
	"github.com/andrewpaige1/tarjetas-api/auth"
	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/deckcache"
	"github.com/andrewpaige1/tarjetas-api/export"
	"github.com/andrewpaige1/tarjetas-api/imagestore"
	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/andrewpaige1/tarjetas-api/middleware"
)

const defaultMaxUpload = 5 << 20

// Analyzer is satisfied by ai.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*ai.Analysis, error)
}

type Handler struct {
	Cards      *cards.Service
	Auth       *auth.Cache
	Decks      *deckcache.Cache
	Analyzer   Analyzer
	Translator ai.Translator
	Images     imagestore.Store
	Export     *export.Renderer
	MaxUpload  int64
	Log        *logger.Logger
}

func (h *Handler) Register(mux *http.ServeMux) {
	withUser := middleware.SyncUserMiddleware(h.Auth)

	// AI
	mux.HandleFunc("POST /api/analyze-image", withUser(h.AnalyzeImage))
	mux.HandleFunc("POST /api/translate", withUser(h.Translate))

	// Session
	mux.HandleFunc("POST /api/session/signin", h.SignIn)
	mux.HandleFunc("POST /api/session/signout", h.SignOut)

	// Decks
	mux.HandleFunc("GET /api/decks", withUser(h.ListDecks))
	mux.HandleFunc("POST /api/decks", withUser(h.CreateDeck))
	mux.HandleFunc("GET /api/decks/{deckID}", withUser(h.GetDeck))
	mux.HandleFunc("PUT /api/decks/{deckID}", withUser(h.UpdateDeck))
	mux.HandleFunc("DELETE /api/decks/{deckID}", withUser(h.DeleteDeck))
	mux.HandleFunc("DELETE /api/decks/{deckID}/cards/{cardID}", withUser(h.DeleteCardFromDeck))
	mux.HandleFunc("GET /api/decks/{deckID}/export", withUser(h.ExportDeck))

	// Flashcards
	mux.HandleFunc("GET /api/flashcards", withUser(h.ListFlashcards))
	mux.HandleFunc("POST /api/flashcards", withUser(h.CreateFlashcard))
	mux.HandleFunc("GET /api/flashcards/{cardID}", withUser(h.GetFlashcard))
	mux.HandleFunc("POST /api/flashcards/{cardID}/decks", withUser(h.AddCardToDecks))
	mux.HandleFunc("PUT /api/flashcards/{cardID}/image", withUser(h.UploadFlashcardImage))
	mux.HandleFunc("DELETE /api/flashcards/{cardID}/image", withUser(h.ClearFlashcardImage))
	mux.HandleFunc("DELETE /api/flashcards/{cardID}", withUser(h.DeleteFlashcard))

	// Favorites
	mux.HandleFunc("POST /api/favorites", withUser(h.AddFavorite))
	mux.HandleFunc("DELETE /api/favorites", withUser(h.RemoveFavorite))
	mux.HandleFunc("GET /api/favorites/check", withUser(h.CheckFavorite))

	// Samples
	mux.HandleFunc("GET /api/samples", h.ListSamples)
	mux.HandleFunc("GET /api/samples/{sampleID}", h.GetSample)
	mux.HandleFunc("POST /api/samples/{sampleID}/adopt", withUser(h.AdoptSampleCard))
	mux.HandleFunc("PUT /api/samples/{sampleID}/customizations", withUser(h.CustomizeSampleCard))
}

// badRequest marks errors caused by the request itself.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// upstreamError marks failures of an external collaborator.
type upstreamError struct{ err error }

func (e upstreamError) Error() string { return e.err.Error() }
func (e upstreamError) Unwrap() error { return e.err }

func statusFor(err error) (int, string) {
	var br badRequest
	var up upstreamError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.Is(err, cards.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, cards.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, cards.ErrNoValidDecks):
		return http.StatusUnprocessableEntity, "None of the selected decks exist"
	case errors.Is(err, ai.ErrBadImage):
		return http.StatusBadRequest, "Invalid image data"
	case errors.Is(err, ai.ErrNoLabel):
		return http.StatusUnprocessableEntity, "Could not recognize the image"
	case errors.Is(err, imagestore.ErrDisabled):
		return http.StatusServiceUnavailable, "Image uploads are disabled"
	case errors.Is(err, export.ErrTooManyCards):
		return http.StatusBadRequest, "Too many cards for one sheet"
	case errors.As(err, &up):
		return http.StatusBadGateway, "Upstream service failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	kv := []interface{}{"path", r.URL.Path, "status", status, "error", err, "request_id", middleware.RequestIDFrom(r.Context())}
	if status >= http.StatusInternalServerError {
		h.Log.Error(op+" failed", kv...)
	} else {
		h.Log.Debug(op+" rejected", kv...)
	}
	http.Error(w, msg, status)
}

// changed refreshes the caller's deck snapshot after a write.
func (h *Handler) changed(r *http.Request) {
	if h.Decks == nil {
		return
	}
	if u := h.Auth.GetUser(r.Context()); u != nil {
		h.Decks.Mutate(r.Context(), u.ID)
	}
}

func (h *Handler) maxUpload() int64 {
	if h.MaxUpload > 0 {
		return h.MaxUpload
	}
	return defaultMaxUpload
}
