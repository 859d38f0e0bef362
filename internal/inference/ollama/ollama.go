package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"grantalign/internal/inference"
)

// Client is a local model client speaking Ollama's /api/generate, with a fallback to
// OpenAI-compatible completion payloads served by llama.cpp-style servers.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config configures the local model client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new local model client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "orca-mini:3b"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}
}

// Name returns the identifier of this backend.
func (c *Client) Name() string { return "ollama" }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

// Infer implements domain.Inferencer. Retries are left to inference.Retrying.
func (c *Client) Infer(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	data, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: generateOptions{NumPredict: maxOutputTokens},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", inference.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", inference.StatusError("ollama generate", resp)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", inference.Transient(err)
	}
	return decode(payload)
}

func decode(payload []byte) (string, error) {
	// Ollama-native shape: { "response": "..." }
	var native struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(payload, &native); err == nil {
		if native.Error != "" {
			return "", fmt.Errorf("ollama generate: %s", native.Error)
		}
		if native.Response != "" {
			return native.Response, nil
		}
	}
	// Fallback to OpenAI-compatible completion shape
	var compat struct {
		Choices []struct {
			Text    string `json:"text"`
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &compat); err == nil && len(compat.Choices) > 0 {
		if t := compat.Choices[0].Text; t != "" {
			return t, nil
		}
		if t := compat.Choices[0].Message.Content; t != "" {
			return t, nil
		}
	}
	return "", errors.New("ollama generate: no text returned")
}
