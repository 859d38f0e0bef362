package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"grantalign/internal/inference"
)

// Client answers prompts with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// Config configures the Gemini client.
type Config struct {
	APIKeyEnv string
	Model     string
	// BaseURL overrides the API endpoint; empty uses Google's default.
	BaseURL string
}

// NewClient creates a Gemini client using the API key found in cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: cfg.Model}, nil
}

// Name returns the identifier of this backend.
func (c *Client) Name() string { return "gemini" }

// Infer implements domain.Inferencer.
func (c *Client) Infer(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
	})
	if err != nil {
		return "", classify(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if inference.IsRetryableStatus(apiErr.Code) {
			return inference.Transient(err)
		}
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return inference.Transient(err)
}
