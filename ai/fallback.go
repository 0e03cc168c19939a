package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andrewpaige1/tarjetas-api/logger"
)

// FallbackTimeout bounds each call to a free translation API.
const FallbackTimeout = 10 * time.Second

func getJSON(ctx context.Context, client *http.Client, endpoint string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, FallbackTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fallbackClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: FallbackTimeout}
}

// MyMemory is the free MyMemory translation API.
type MyMemory struct {
	Endpoint string
	Client   *http.Client
}

func (m MyMemory) Translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", "en|es")

	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus interface{} `json:"responseStatus"`
	}
	if err := getJSON(ctx, fallbackClient(m.Client), m.Endpoint+"?"+q.Encode(), &out); err != nil {
		return "", fmt.Errorf("mymemory: %w", err)
	}
	translated := cleanTranslation(out.ResponseData.TranslatedText)
	if translated == "" {
		return "", errors.New("mymemory: empty translation")
	}
	return translated, nil
}

// Lingva is a Lingva Translate instance.
type Lingva struct {
	BaseURL string
	Client  *http.Client
}

func (l Lingva) Translate(ctx context.Context, text string) (string, error) {
	endpoint := strings.TrimRight(l.BaseURL, "/") + "/en/es/" + url.PathEscape(text)

	var out struct {
		Translation string `json:"translation"`
	}
	if err := getJSON(ctx, fallbackClient(l.Client), endpoint, &out); err != nil {
		return "", fmt.Errorf("lingva: %w", err)
	}
	translated := cleanTranslation(out.Translation)
	if translated == "" {
		return "", errors.New("lingva: empty translation")
	}
	return translated, nil
}

type namedTranslator struct {
	name string
	t    Translator
}

// Chain tries translators in order. An error moves on to the next one; so
// does an answer that merely echoes the input, which is kept as a last
// resort.
type Chain struct {
	steps []namedTranslator
	log   *logger.Logger
}

func NewChain(log *logger.Logger) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	return &Chain{log: log.With("service", "TranslatorChain")}
}

func (c *Chain) Add(name string, t Translator) *Chain {
	if t != nil {
		c.steps = append(c.steps, namedTranslator{name: name, t: t})
	}
	return c
}

func (c *Chain) Len() int { return len(c.steps) }

func (c *Chain) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to translate")
	}
	if len(c.steps) == 0 {
		return "", errors.New("no translators configured")
	}

	echo := ""
	var lastErr error
	for _, step := range c.steps {
		out, err := step.t.Translate(ctx, text)
		if err != nil {
			c.log.Warn("Translate: provider failed", "provider", step.name, "error", err)
			lastErr = err
			continue
		}
		if strings.EqualFold(out, text) {
			c.log.Debug("Translate: provider echoed input", "provider", step.name, "text", text)
			if echo == "" {
				echo = out
			}
			continue
		}
		return out, nil
	}
	if echo != "" {
		return echo, nil
	}
	return "", fmt.Errorf("all translators failed: %w", lastErr)
}
