// Package ai wraps the hosted models that name the subject of a photo and
// translate it to Spanish.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

var (
	ErrNoLabel  = errors.New("no label found")
	ErrBadImage = errors.New("invalid image data")
)

type Labeler interface {
	Label(ctx context.Context, image []byte, mimeType string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Analyzer labels an image and translates the label.
type Analyzer struct {
	Labeler    Labeler
	Translator Translator
}

type Analysis struct {
	Label       string `json:"label"`
	Translation string `json:"translation"`
}

func (a Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error) {
	label, err := a.Labeler.Label(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("label image: %w", err)
	}
	label = CleanLabel(label)
	if label == "" {
		return nil, ErrNoLabel
	}
	translation, err := a.Translator.Translate(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("translate %q: %w", label, err)
	}
	return &Analysis{Label: label, Translation: translation}, nil
}

// CleanLabel strips punctuation, keeps at most two words and capitalizes
// the first letter.
func CleanLabel(s string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
			return r
		}
		return -1
	}, s)
	words := strings.Fields(clean)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 2 {
		words = words[:2]
	}
	out := strings.ToLower(strings.Join(words, " "))
	runes := []rune(out)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// cleanTranslation drops quotes and trailing punctuation models like to add.
func cleanTranslation(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, "\"'`“”«».!;: ")
}

// DecodeImage accepts a data URL or bare base64 and returns the bytes and
// mime type.
func DecodeImage(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	mimeType := ""
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrBadImage
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if len(data) == 0 {
		return nil, "", ErrBadImage
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: %s", ErrBadImage, mimeType)
	}
	return data, mimeType, nil
}
