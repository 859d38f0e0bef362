package summarizer

import "strings"

// DefaultMaxSentences is the cap used for running, per-archetype and merged summaries.
const DefaultMaxSentences = 10

const sentenceSep = ". "

// Summarize splits text on ". " and keeps the first maxSentences pieces.
// Text with at most maxSentences pieces is returned unchanged. Longer inputs keep
// at least 15 pieces above 50 and at least 20 pieces above 100.
// The result is never longer than text.
func Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := strings.Split(text, sentenceSep)
	if len(sentences) <= maxSentences {
		return text
	}
	keep := maxSentences
	switch n := len(sentences); {
	case n > 100:
		keep = max(keep, 20)
	case n > 50:
		keep = max(keep, 15)
	}
	return strings.Join(sentences[:keep], sentenceSep)
}
