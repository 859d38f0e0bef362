package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"grantalign/internal/domain"
	"grantalign/internal/summarizer"
)

// Merger folds parsed reports into one summary. It only grows.
type Merger struct {
	maxSentences int
	reports      int
	sections     map[domain.Archetype][]string
}

func NewMerger(maxSentences int) *Merger {
	return &Merger{maxSentences: maxSentences, sections: make(map[domain.Archetype][]string)}
}

// Add folds one report in. Same-archetype content from different reports is kept in
// the order reports were added.
func (m *Merger) Add(s domain.ReportSections) {
	m.reports++
	for _, a := range domain.Archetypes() {
		if lines, ok := s[a]; ok {
			m.sections[a] = append(m.sections[a], lines...)
		}
	}
}

// Reports is how many reports have been folded in.
func (m *Merger) Reports() int { return m.reports }

// Result re-summarizes each archetype's joined content.
func (m *Merger) Result() domain.MergedSummary {
	out := domain.MergedSummary{Reports: m.reports, Sections: make(map[domain.Archetype]string, len(m.sections))}
	for a, lines := range m.sections {
		out.Sections[a] = summarizer.Summarize(strings.Join(lines, " "), m.maxSentences)
	}
	return out
}

// Merge is the one-shot form of Merger.
func Merge(reports []domain.ReportSections, maxSentences int) domain.MergedSummary {
	m := NewMerger(maxSentences)
	for _, r := range reports {
		m.Add(r)
	}
	return m.Result()
}

// EncodeMerged writes the cross-project summary. Only archetypes seen in at least one
// report are written, in archetype order.
func EncodeMerged(w io.Writer, s domain.MergedSummary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Grouped Answers from %d result files\n\n", s.Reports)
	for _, a := range domain.Archetypes() {
		text, ok := s.Sections[a]
		if !ok {
			continue
		}
		fmt.Fprintf(bw, "%s\n", a.Label())
		if text != "" {
			fmt.Fprintf(bw, "%s\n", text)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

const mergedMarker = "_project_grant_alignment_summary_"

// MergedFileName embeds the number of folded reports.
func MergedFileName(label string, reports int) string {
	if label == "" {
		label = "all"
	}
	return fmt.Sprintf("%s%s%d.txt", label, mergedMarker, reports)
}

// IsResultFile reports whether name is a per-project report. Log files and merged
// summaries never count.
func IsResultFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "result") &&
		strings.HasSuffix(lower, ".txt") &&
		!strings.HasPrefix(lower, "log_") &&
		!strings.Contains(lower, mergedMarker)
}

// IsGeneratedFile reports whether name is any artifact this tool writes: a per-project
// report, an audit log or a merged summary. Such files are never read back as inputs.
func IsGeneratedFile(name string) bool {
	lower := strings.ToLower(name)
	return IsResultFile(name) || strings.HasPrefix(lower, "log_") || strings.Contains(lower, mergedMarker)
}
