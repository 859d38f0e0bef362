// Package report serializes per-project reports and folds many of them into one
// cross-project summary. The "Question Type N:" label line is the only contract
// between writer and reader.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"grantalign/internal/domain"
	"grantalign/internal/summarizer"
)

// Build summarizes each archetype bucket of grouped into a report.
func Build(projectID, logFile, summary string, grouped domain.GroupedAnswers, maxSentences int) domain.ProjectReport {
	r := domain.ProjectReport{
		ProjectID: projectID,
		LogFile:   logFile,
		Summary:   summary,
		Sections:  make(map[domain.Archetype]string, domain.NumArchetypes),
	}
	for _, a := range domain.Archetypes() {
		r.Sections[a] = summarizer.Summarize(strings.Join(grouped[a], " "), maxSentences)
	}
	return r
}

// Encode writes r in the flat-text report format.
func Encode(w io.Writer, r domain.ProjectReport) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Log file: %s\n\n", r.LogFile)
	fmt.Fprintf(bw, "Summary:\n%s\n\n", r.Summary)
	bw.WriteString("Grouped Answers:\n")
	for _, a := range domain.Archetypes() {
		fmt.Fprintf(bw, "%s\n%s\n\n", a.Label(), r.Sections[a])
	}
	return bw.Flush()
}

// ResultFileName names a project's report; the timestamp keeps reruns from overwriting.
func ResultFileName(projectID string, now time.Time) string {
	return fmt.Sprintf("result_%s_%s.txt", projectID, now.Format(domain.TimestampLayout))
}
