package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentences(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence %d", i+1)
	}
	return strings.Join(parts, ". ")
}

func count(text string) int { return len(strings.Split(text, ". ")) }

func TestSummarize_ShortTextUnchanged(t *testing.T) {
	for _, n := range []int{1, 5, 10} {
		text := sentences(n) + "."
		assert.Equal(t, text, Summarize(text, 10))
	}
	assert.Equal(t, "", Summarize("", 10))
	assert.Equal(t, "no separator at all", Summarize("no separator at all", 10))
}

func TestSummarize_StepFunction(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{11, 10},
		{50, 10},
		{51, 15},
		{100, 15},
		{101, 20},
		{500, 20},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d sentences", tc.in), func(t *testing.T) {
			got := Summarize(sentences(tc.in), 10)
			assert.Equal(t, tc.want, count(got))
			assert.True(t, strings.HasPrefix(sentences(tc.in), got))
		})
	}
}

func TestSummarize_LargerCapIsKept(t *testing.T) {
	assert.Equal(t, 30, count(Summarize(sentences(60), 30)))
	assert.Equal(t, 25, count(Summarize(sentences(200), 25)))
}

func TestSummarize_DefaultCap(t *testing.T) {
	assert.Equal(t, 10, count(Summarize(sentences(20), 0)))
}

func TestSummarize_NeverExpands(t *testing.T) {
	for _, n := range []int{3, 12, 55, 130} {
		text := sentences(n)
		once := Summarize(text, 10)
		twice := Summarize(once, 10)
		assert.LessOrEqual(t, len(once), len(text))
		assert.LessOrEqual(t, len(twice), len(once))
		assert.Equal(t, twice, Summarize(twice, 20), "larger cap must be a no-op")
	}
}

type recordingInferencer struct {
	prompts []string
	failAt  int
}

func (r *recordingInferencer) Infer(_ context.Context, prompt string, _ int) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if r.failAt > 0 && len(r.prompts) == r.failAt {
		return "", errors.New("model unavailable")
	}
	return fmt.Sprintf(" summary-%d ", len(r.prompts)), nil
}

func TestLLM_SummarizesWindowsInOrder(t *testing.T) {
	inf := &recordingInferencer{}
	out, err := NewLLM(inf, 5, 100).Summarize(context.Background(), "aaaaabbbbbcc")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaaa", "bbbbb", "cc"}, inf.prompts)
	assert.Equal(t, "summary-1 summary-2 summary-3", out)
}

func TestLLM_PropagatesFailure(t *testing.T) {
	inf := &recordingInferencer{failAt: 2}
	_, err := NewLLM(inf, 5, 100).Summarize(context.Background(), "aaaaabbbbbcc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window 2 of 3")
}

func TestLLM_EmptyText(t *testing.T) {
	inf := &recordingInferencer{}
	out, err := NewLLM(inf, 0, 100).Summarize(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, inf.prompts)
}
