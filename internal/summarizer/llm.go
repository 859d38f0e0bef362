package summarizer

import (
	"context"
	"fmt"
	"strings"

	"grantalign/internal/chunker"
	"grantalign/internal/domain"
)

// LLM summarizes long text by sending fixed-width windows to the model one at a time
// and concatenating the replies in window order. Windows share no context, so an idea
// that straddles a boundary may only be partly reflected.
type LLM struct {
	inf       domain.Inferencer
	windows   *chunker.FixedWidthChunker
	maxTokens int
}

// NewLLM creates a model-backed summarizer. width <= 0 selects chunker.DefaultWindowChars.
func NewLLM(inf domain.Inferencer, width, maxOutputTokens int) *LLM {
	return &LLM{inf: inf, windows: chunker.NewFixedWidthChunker(width), maxTokens: maxOutputTokens}
}

func (s *LLM) Summarize(ctx context.Context, text string) (string, error) {
	windows, err := s.windows.Chunk(domain.Document{Content: text})
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		out, err := s.inf.Infer(ctx, w.Text, s.maxTokens)
		if err != nil {
			return "", fmt.Errorf("summarize window %d of %d: %w", w.Index+1, len(windows), err)
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.Join(parts, " "), nil
}
