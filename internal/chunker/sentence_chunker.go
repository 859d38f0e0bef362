package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"grantalign/internal/domain"
)

// DefaultMaxChars bounds sentence-aware segments of grant text.
const DefaultMaxChars = 5000

// SentenceChunker packs whole sentences into segments of at most maxChars characters.
// A single sentence longer than maxChars becomes its own oversized segment.
type SentenceChunker struct {
	maxChars int
}

func NewSentenceChunker(maxChars int) *SentenceChunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &SentenceChunker{maxChars: maxChars}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Segment, error) {
	var segments []domain.Segment
	emit := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		segments = append(segments, domain.Segment{
			DocumentID: document.ID,
			Index:      len(segments),
			Text:       text,
		})
	}

	var cur strings.Builder
	curLen := 0
	for _, sentence := range SplitSentences(document.Content) {
		n := utf8.RuneCountInString(sentence)
		if curLen > 0 && curLen+n+1 > c.maxChars {
			emit(cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(sentence)
		curLen += n
	}
	emit(cur.String())
	return segments, nil
}

// SplitSentences cuts text at every whitespace character that follows '.' or '?',
// except after dotted abbreviations such as "e.g." and title-case ones such as "Mr.".
// The whitespace at a boundary is consumed; all other text is kept verbatim.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var out []string
	start := 0
	for i, r := range runes {
		if !unicode.IsSpace(r) || !isSentenceEnd(runes[:i]) {
			continue
		}
		out = append(out, string(runes[start:i]))
		start = i + 1
	}
	return append(out, string(runes[start:]))
}

func isSentenceEnd(prefix []rune) bool {
	n := len(prefix)
	if n == 0 {
		return false
	}
	if last := prefix[n-1]; last != '.' && last != '?' {
		return false
	}
	// "i.e." style: word, dot, word, any.
	if n >= 4 && isWord(prefix[n-4]) && prefix[n-3] == '.' && isWord(prefix[n-2]) {
		return false
	}
	// "Dr." style: upper, lower, dot.
	if n >= 3 && isASCIIUpper(prefix[n-3]) && isASCIILower(prefix[n-2]) && prefix[n-1] == '.' {
		return false
	}
	return true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
