package chunker

import "grantalign/internal/domain"

// DefaultWindowChars is the window width used when re-summarizing the whole corpus.
const DefaultWindowChars = 6000

// FixedWidthChunker slices text into contiguous windows of exactly width characters.
// Boundaries are positional; the last window may be shorter.
type FixedWidthChunker struct {
	width int
}

func NewFixedWidthChunker(width int) *FixedWidthChunker {
	if width <= 0 {
		width = DefaultWindowChars
	}
	return &FixedWidthChunker{width: width}
}

func (c *FixedWidthChunker) Chunk(document domain.Document) ([]domain.Segment, error) {
	runes := []rune(document.Content)
	var segments []domain.Segment
	for start := 0; start < len(runes); start += c.width {
		end := start + c.width
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, domain.Segment{
			DocumentID: document.ID,
			Index:      len(segments),
			Text:       string(runes[start:end]),
		})
	}
	return segments, nil
}
