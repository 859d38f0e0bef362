package domain

import (
	"errors"
	"fmt"
)

// Role tells whether a document belongs to the grant corpus or describes a project.
type Role string

const (
	RoleGrantCorpus Role = "grant-corpus"
	RoleProject     Role = "project"
)

// Document is extracted source text. It is never mutated after extraction.
type Document struct {
	ID      string
	Path    string
	Role    Role
	Content string
}

// Segment is a contiguous, bounded slice of a document's text.
type Segment struct {
	DocumentID string
	Index      int
	Text       string
}

// TimestampLayout is embedded in log and report file names.
const TimestampLayout = "20060102_150405"

// NumArchetypes is the size of the fixed question battery applied to every segment.
const NumArchetypes = 8

// Archetype identifies one of the fixed question templates, 1..NumArchetypes.
type Archetype int

// ArchetypeAt returns the archetype of the i-th (1-based) question of a project.
func ArchetypeAt(position int) Archetype {
	return Archetype((position-1)%NumArchetypes + 1)
}

// Valid reports whether a is inside 1..NumArchetypes.
func (a Archetype) Valid() bool { return a >= 1 && a <= NumArchetypes }

// Label is the report section label. Readers of report files parse this exact text.
func (a Archetype) Label() string { return fmt.Sprintf("Question Type %d:", int(a)) }

// Archetypes lists every archetype in template order.
func Archetypes() []Archetype {
	out := make([]Archetype, NumArchetypes)
	for i := range out {
		out[i] = Archetype(i + 1)
	}
	return out
}

// Question is one archetype instantiated against one segment and one project.
type Question struct {
	Index     int // 1-based position in the project's question list
	Segment   int
	Archetype Archetype
	Text      string
}

// Answer is the model output for exactly one question.
type Answer struct {
	QuestionIndex int
	Archetype     Archetype
	Text          string
}

// GroupedAnswers holds a project's answer texts per archetype, in arrival order.
type GroupedAnswers map[Archetype][]string

// Add appends text to the bucket of a.
func (g GroupedAnswers) Add(a Archetype, text string) {
	g[a] = append(g[a], text)
}

// ProjectReport is one project's final output. Sections holds one summarized text per archetype.
type ProjectReport struct {
	ProjectID string
	LogFile   string
	Summary   string
	Sections  map[Archetype]string
}

// ReportSections is the canonical parsed form of a report: archetype to ordered content lines.
type ReportSections map[Archetype][]string

// MergedSummary is the fold of N reports, keyed by archetype.
type MergedSummary struct {
	Reports  int
	Sections map[Archetype]string
}

// RemoteFile describes one entry returned by Storage.List.
type RemoteFile struct {
	Name string
	Path string
}

// Field is a key/value pair attached to an audit event.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

var (
	ErrNoDocuments      = errors.New("no documents found")
	ErrUnknownArchetype = errors.New("unknown archetype")
)
