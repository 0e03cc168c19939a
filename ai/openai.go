package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	labelPrompt = "Identify the main object in this photo. Answer with one or two English words " +
		"naming it, lowercase, without punctuation or explanation."
	translatePrompt = "You translate English words for Spanish learners in Latin America. " +
		"Answer with the Latin American Spanish word only. Prefer the native Spanish term " +
		"over English loanwords (\"computadora\", not \"computer\"). No quotes, no punctuation, " +
		"no explanation."
)

// ChatClient talks to an OpenAI compatible chat completions endpoint.
type ChatClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewChatClient(baseURL, apiKey, model string, httpClient *http.Client) (*ChatClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chat: base url required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chat: api key required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ChatClient{baseURL: baseURL, apiKey: strings.TrimSpace(apiKey), model: model, http: httpClient}, nil
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ChatClient) complete(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("chat read: %w", err)
	}
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("chat decode (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("chat status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("chat status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat: empty response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Label asks the vision model to name the photo subject.
func (c *ChatClient) Label(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrBadImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	text, err := c.complete(ctx, []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: labelPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		},
	}}, 20)
	if err != nil {
		return "", err
	}
	label := CleanLabel(text)
	if label == "" {
		return "", ErrNoLabel
	}
	return label, nil
}

func (c *ChatClient) Translate(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: translatePrompt},
		{Role: "user", Content: text},
	}, 30)
	if err != nil {
		return "", err
	}
	out = cleanTranslation(out)
	if out == "" {
		return "", errors.New("chat: empty translation")
	}
	return out, nil
}
