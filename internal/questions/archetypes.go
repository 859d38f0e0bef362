package questions

import (
	"fmt"

	"grantalign/internal/domain"
)

// Template renders one archetype for a (project, requirements segment) pair.
type Template struct {
	Archetype domain.Archetype
	Name      string
	render    func(project, requirements string) string
}

// Render instantiates the template.
func (t Template) Render(project, requirements string) string {
	return t.render(project, requirements)
}

// templates is the fixed battery. Order and count are part of the report format:
// position k here is "Question Type k" in every report.
var templates = [domain.NumArchetypes]Template{
	{1, "meets requirements", func(p, r string) string {
		return fmt.Sprintf("How does the project \"%s\" meet the grant requirements \"%s\"? Explain your decision.", p, r)
	}},
	{2, "what fulfills", func(p, r string) string {
		return fmt.Sprintf("What aspects of the project \"%s\" fulfill the grant requirements \"%s\"?", p, r)
	}},
	{3, "what fails", func(p, r string) string {
		return fmt.Sprintf("What aspects of the project \"%s\" fail to meet the grant requirements \"%s\"?", p, r)
	}},
	{4, "overall match", func(p, r string) string {
		return fmt.Sprintf("How well does the project \"%s\" match the grant requirements \"%s\" overall?", p, r)
	}},
	{5, "percentage match", func(p, r string) string {
		return fmt.Sprintf("What percentage does the project \"%s\" meet the grant requirements \"%s\"?", p, r)
	}},
	{6, "suggested addition", func(p, r string) string {
		return fmt.Sprintf("What should be added to the project \"%s\" to maximize its match with the grant requirements \"%s\" without making major changes? Provide the updated project description.", p, r)
	}},
	{7, "percentage after addition", func(p, r string) string {
		return fmt.Sprintf("What is the percentage of match of the updated project description with the grant requirements \"%s\"?", r)
	}},
	{8, "risk points", func(p, r string) string {
		return fmt.Sprintf("What are the risky points in these grant requirements: \"%s\"?", r)
	}},
}

// Templates returns the archetype battery in order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates[:])
	return out
}

// Lookup returns the template for a.
func Lookup(a domain.Archetype) (Template, error) {
	if !a.Valid() {
		return Template{}, fmt.Errorf("%w: %d", domain.ErrUnknownArchetype, int(a))
	}
	return templates[a-1], nil
}
