package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/ai"
	"github.com/andrewpaige1/tarjetas-api/utils"
)

// POST /api/analyze-image
func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		http.Error(w, "Image analysis is not configured", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Image string `json:"image"`
	}
	if err := utils.DecodeJSON(http.MaxBytesReader(w, r.Body, h.maxUpload()*2), &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	data, mimeType, err := ai.DecodeImage(req.Image)
	if err != nil {
		h.fail(w, r, "AnalyzeImage", err)
		return
	}
	if int64(len(data)) > h.maxUpload() {
		http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}

	analysis, err := h.Analyzer.Analyze(r.Context(), data, mimeType)
	if err != nil {
		if !errors.Is(err, ai.ErrNoLabel) && !errors.Is(err, ai.ErrBadImage) {
			err = upstreamError{err}
		}
		h.fail(w, r, "AnalyzeImage", err)
		return
	}
	h.Log.Info("AnalyzeImage: labeled", "label", analysis.Label, "translation", analysis.Translation)
	utils.WriteJSON(w, http.StatusOK, analysis)
}

// POST /api/translate
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r.Body, &req, false); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}
	translation, err := h.Translator.Translate(r.Context(), text)
	if err != nil {
		h.fail(w, r, "Translate", upstreamError{err})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"text": text, "translation": translation})
}
