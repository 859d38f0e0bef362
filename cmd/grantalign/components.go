package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"grantalign/internal/config"
	"grantalign/internal/domain"
	"grantalign/internal/inference"
	"grantalign/internal/inference/gemini"
	"grantalign/internal/inference/ollama"
	"grantalign/internal/inference/openai"
	"grantalign/internal/storage"
	"grantalign/internal/storage/dropbox"
)

func newStorage(ctx context.Context, cfg *config.AppConfig) (domain.Storage, error) {
	switch cfg.Storage.Type {
	case "local", "":
		return storage.NewLocal(cfg.Storage.Local.Root), nil
	case "dropbox":
		d := cfg.Storage.Dropbox
		if d == nil {
			return nil, fmt.Errorf("dropbox storage config missing")
		}
		dc, err := dropbox.ConfigFromEnv(d.AppKeyEnv, d.AppSecretEnv, d.RefreshTokenEnv, time.Duration(d.TimeoutSecs)*time.Second)
		if err != nil {
			return nil, err
		}
		return dropbox.New(ctx, dc), nil
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Storage.Type)
	}
}

func newInferencer(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (domain.Inferencer, error) {
	var inf domain.Inferencer
	ic := cfg.Inference
	switch ic.Type {
	case "ollama", "":
		if ic.Ollama == nil {
			return nil, fmt.Errorf("ollama inference config missing")
		}
		inf = ollama.NewClient(ollama.Config{
			BaseURL: ic.Ollama.BaseURL,
			Model:   ic.Ollama.Model,
			Timeout: time.Duration(ic.Ollama.TimeoutSecs) * time.Second,
		})
	case "openai":
		if ic.OpenAI == nil {
			return nil, fmt.Errorf("openai inference config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   ic.OpenAI.BaseURL,
			APIKeyEnv: ic.OpenAI.APIKeyEnv,
			Model:     ic.OpenAI.Model,
			Timeout:   time.Duration(ic.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai inference init failed: %w", err)
		}
		inf = client
	case "gemini":
		if ic.Gemini == nil {
			return nil, fmt.Errorf("gemini inference config missing")
		}
		client, err := gemini.NewClient(ctx, gemini.Config{APIKeyEnv: ic.Gemini.APIKeyEnv, Model: ic.Gemini.Model})
		if err != nil {
			return nil, fmt.Errorf("gemini inference init failed: %w", err)
		}
		inf = client
	default:
		return nil, fmt.Errorf("unknown inference backend: %s", ic.Type)
	}
	return inference.NewRetrying(inf, ic.MaxRetries, logger), nil
}
