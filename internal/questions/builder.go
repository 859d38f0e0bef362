package questions

import (
	"fmt"

	"grantalign/internal/chunker"
	"grantalign/internal/domain"
)

// Builder expands a project description and the grant corpus into the question battery.
type Builder struct {
	chunker domain.Chunker
}

// NewBuilder uses ch to segment the corpus; nil selects the sentence-aware default.
func NewBuilder(ch domain.Chunker) *Builder {
	if ch == nil {
		ch = chunker.NewSentenceChunker(chunker.DefaultMaxChars)
	}
	return &Builder{chunker: ch}
}

// Build returns NumArchetypes questions per corpus segment, segment-major.
// Question i (1-based) carries archetype ((i-1) mod NumArchetypes)+1.
func (b *Builder) Build(project, corpus domain.Document) ([]domain.Question, error) {
	segments, err := b.chunker.Chunk(corpus)
	if err != nil {
		return nil, fmt.Errorf("segment corpus: %w", err)
	}
	out := make([]domain.Question, 0, len(segments)*domain.NumArchetypes)
	for _, seg := range segments {
		for _, tpl := range templates {
			out = append(out, domain.Question{
				Index:     len(out) + 1,
				Segment:   seg.Index,
				Archetype: tpl.Archetype,
				Text:      tpl.Render(project.Content, seg.Text),
			})
		}
	}
	return out, nil
}
