// Package llm is the OpenRouter chat-completions client used for text
// recognition on captured regions and for translating the result.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"snapnote/src/screenshot"
)

var (
	ErrMissingAPIKey = errors.New("API key is required (set OPENROUTER_API_KEY or OPENROUTER_API_KEY_FILE)")
	ErrMissingModel  = errors.New("model is required (set MODEL)")
	ErrNoText        = errors.New("no text detected in image")
	ErrEmptyInput    = errors.New("nothing to send")
)

const (
	DefaultBaseURL  = "https://openrouter.ai/api/v1"
	defaultTimeout  = 45 * time.Second
	noTextSentinel  = "NO_TEXT_FOUND"
	visionMaxTokens = 2000
)

// Config holds OpenRouter credentials and routing.
type Config struct {
	APIKey         string
	Model          string
	TranslateModel string
	Providers      []string
	// BaseURL overrides the OpenRouter endpoint root.
	BaseURL string
	Timeout time.Duration
}

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (type: %s, code: %v)", e.Message, e.Type, e.Code)
}

const ocrPrompt = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
	"- No formatting\n" +
	"- No XML/HTML tags\n" +
	"- No markdown\n" +
	"- No explanations\n" +
	"- Preserve line breaks accurately from the visual layout.\n" +
	"If no text found, return '" + noTextSentinel + "'"

func translatePrompt(lang, text string) string {
	return "Translate the following text into " + lang + ". Return ONLY the translated text, " +
		"preserving line breaks. Do not add explanations or notes.\n\n" + text
}

// Client talks to the OpenRouter chat completions API. Each call makes a
// single attempt.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a client for cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TranslateModel == "" {
		cfg.TranslateModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) providerPreferences() *ProviderPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

func (c *Client) validate(model string) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	if model == "" {
		return ErrMissingModel
	}
	return nil
}

// QueryVision sends a PNG to the vision model and returns the extracted
// text.
func (c *Client) QueryVision(ctx context.Context, png []byte) (string, error) {
	if err := c.validate(c.cfg.Model); err != nil {
		return "", err
	}
	if len(png) == 0 {
		return "", ErrEmptyInput
	}
	req := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{{
			Role: "user",
			Content: []Content{
				{Type: "text", Text: ocrPrompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: screenshot.DataURI(png)}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   visionMaxTokens,
		Provider:    c.providerPreferences(),
	}
	text, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	text = cleanExtractedText(strings.TrimSpace(text))
	if text == "" || text == noTextSentinel {
		return "", ErrNoText
	}
	return text, nil
}

// Translate renders text in the target language.
func (c *Client) Translate(ctx context.Context, text, lang string) (string, error) {
	if err := c.validate(c.cfg.TranslateModel); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	if lang == "" {
		lang = "English"
	}
	req := ChatRequest{
		Model: c.cfg.TranslateModel,
		Messages: []Message{{
			Role:    "user",
			Content: []Content{{Type: "text", Text: translatePrompt(lang, text)}},
		}},
		Temperature: 0.2,
		MaxTokens:   visionMaxTokens,
		Provider:    c.providerPreferences(),
	}
	out, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty translation in API response")
	}
	return out, nil
}

// Ping checks that the endpoint accepts the configured key.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Title", "SnapNote")
}

func (c *Client) complete(ctx context.Context, request ChatRequest) (string, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("llm: %s responded %d in %v", request.Model, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var response ChatResponse
	decodeErr := json.Unmarshal(body, &response)
	if decodeErr == nil && response.Error != nil {
		return "", response.Error
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no choices in API response")
	}
	return response.Choices[0].Message.Content, nil
}

func cleanExtractedText(text string) string {
	text = strings.TrimSuffix(text, "</image>")
	return strings.TrimSpace(text)
}
