package report

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"grantalign/internal/domain"
)

// Strategy selects how section content lines are read back.
type Strategy string

const (
	// LineGrouping keeps every non-blank line between a label and the next label.
	// It is the canonical strategy.
	LineGrouping Strategy = "line"
	// SingleValue keeps only the first non-blank line of each archetype and ignores
	// everything before the first "Question Type 1:" line.
	SingleValue Strategy = "single"
)

// ParseStrategy maps a config value to a Strategy; empty selects LineGrouping.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LineGrouping:
		return LineGrouping, nil
	case SingleValue:
		return SingleValue, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}

var labelRe = regexp.MustCompile(`^Question Type (\d+):$`)

const maxLineBytes = 16 << 20

// Decode parses a report (or a merged summary) into its archetype sections.
// Text before the first label line is ignored.
func Decode(r io.Reader, strategy Strategy) (domain.ReportSections, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	sections := make(domain.ReportSections)
	var current domain.Archetype
	captured := map[domain.Archetype]bool{}
	started := strategy != SingleValue

	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if m := labelRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			a := domain.Archetype(n)
			if !a.Valid() {
				return nil, fmt.Errorf("line %d: %w: %q", lineNo, domain.ErrUnknownArchetype, line)
			}
			if a == 1 {
				started = true
			}
			if started {
				current = a
				if _, ok := sections[a]; !ok {
					sections[a] = nil
				}
			}
			continue
		}
		if current == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		if strategy == SingleValue {
			if captured[current] {
				continue
			}
			captured[current] = true
		}
		sections[current] = append(sections[current], line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return sections, nil
}
