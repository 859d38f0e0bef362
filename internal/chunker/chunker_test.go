package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantalign/internal/domain"
)

func doc(text string) domain.Document {
	return domain.Document{ID: "grants", Role: domain.RoleGrantCorpus, Content: text}
}

func TestSplitSentences(t *testing.T) {
	t.Run("period and question mark", func(t *testing.T) {
		got := SplitSentences("Is it funded? Yes it is. Done.")
		assert.Equal(t, []string{"Is it funded?", "Yes it is.", "Done."}, got)
	})

	t.Run("dotted abbreviation is not a boundary", func(t *testing.T) {
		got := SplitSentences("Costs, e.g. travel, are eligible. Salaries are not.")
		assert.Equal(t, []string{"Costs, e.g. travel, are eligible.", "Salaries are not."}, got)
	})

	t.Run("title abbreviation is not a boundary", func(t *testing.T) {
		got := SplitSentences("Contact Dr. Smith today. Thanks.")
		assert.Equal(t, []string{"Contact Dr. Smith today.", "Thanks."}, got)
	})

	t.Run("exclamation does not split", func(t *testing.T) {
		got := SplitSentences("Apply now! Deadline soon.")
		assert.Equal(t, []string{"Apply now! Deadline soon."}, got)
	})

	t.Run("newline after period splits", func(t *testing.T) {
		got := SplitSentences("One.\nTwo.")
		assert.Equal(t, []string{"One.", "Two."}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, SplitSentences(""))
	})
}

func TestSentenceChunker_Bounds(t *testing.T) {
	sentence := "The applicant must be a registered nonprofit organisation."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 40))

	segments, err := NewSentenceChunker(200).Chunk(doc(text))
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)

	for i, s := range segments {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, "grants", s.DocumentID)
		assert.LessOrEqual(t, utf8.RuneCountInString(s.Text), 200)
		assert.True(t, strings.HasSuffix(s.Text, "."), "segment %d ends mid-sentence", i)
	}
}

func TestSentenceChunker_Lossless(t *testing.T) {
	text := "First rule applies. Second rule, i.e. the budget cap, applies? Third rule. " +
		"Fourth rule is longer than the others by a fair margin. Fifth."

	segments, err := NewSentenceChunker(40).Chunk(doc(text))
	require.NoError(t, err)

	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(parts, " ")))
}

func TestSentenceChunker_OversizedSentence(t *testing.T) {
	long := strings.Repeat("x", 120) + "."
	text := "Short one. " + long + " Tail."

	segments, err := NewSentenceChunker(50).Chunk(doc(text))
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "Short one.", segments[0].Text)
	assert.Equal(t, long, segments[1].Text)
	assert.Equal(t, "Tail.", segments[2].Text)
}

func TestSentenceChunker_OversizedFirstSentence(t *testing.T) {
	long := strings.Repeat("y", 80) + "."
	segments, err := NewSentenceChunker(50).Chunk(doc(long + " Next."))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, long, segments[0].Text)
}

func TestSentenceChunker_Empty(t *testing.T) {
	for _, text := range []string{"", "   \n\t "} {
		segments, err := NewSentenceChunker(100).Chunk(doc(text))
		require.NoError(t, err)
		assert.Empty(t, segments)
	}
}

func TestSentenceChunker_ShortTextIsOneSegment(t *testing.T) {
	segments, err := NewSentenceChunker(0).Chunk(doc("Only one requirement."))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Only one requirement.", segments[0].Text)
}

func TestFixedWidthChunker(t *testing.T) {
	segments, err := NewFixedWidthChunker(4).Chunk(doc("abcdefghij"))
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "abcd", segments[0].Text)
	assert.Equal(t, "efgh", segments[1].Text)
	assert.Equal(t, "ij", segments[2].Text)
}

func TestFixedWidthChunker_CountsCharactersNotBytes(t *testing.T) {
	segments, err := NewFixedWidthChunker(2).Chunk(doc("äöüß"))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "äö", segments[0].Text)
	assert.Equal(t, "üß", segments[1].Text)
}

func TestFixedWidthChunker_Empty(t *testing.T) {
	segments, err := NewFixedWidthChunker(10).Chunk(doc(""))
	require.NoError(t, err)
	assert.Empty(t, segments)
}
