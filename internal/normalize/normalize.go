// Package normalize repairs the structure of generated LaTeX: brace checks, excision of sections
// holding unresolved placeholders, emphasis canonicalization and hyperlink cleanup.
//
// Every step is a pure text transform. None of them fail; problems are surfaced through Report.
package normalize

import "fmt"

// maxPasses bounds the outer fixed-point loop in Normalize.
const maxPasses = 8

// Report describes what Normalize detected and changed.
type Report struct {
	Braces          BraceReport `json:"braces"`
	RemovedSections []string    `json:"removed_sections,omitempty"`
	EmphasisChanged bool        `json:"emphasis_changed"`
	LinksChanged    bool        `json:"links_changed"`
}

// Warnings returns human-readable warnings for structural defects.
func (r Report) Warnings() []string {
	var warnings []string
	if !r.Braces.Balanced() {
		warnings = append(warnings, fmt.Sprintf("Unbalanced braces: %d opening, %d closing", r.Braces.Open, r.Braces.Close))
	}
	return warnings
}

// Changes returns descriptions of the edits applied.
func (r Report) Changes() []string {
	var changes []string
	for _, title := range r.RemovedSections {
		changes = append(changes, fmt.Sprintf("Removed section '%s' containing unresolved placeholders", title))
	}
	if r.EmphasisChanged {
		changes = append(changes, "Canonicalized emphasis commands")
	}
	if r.LinksChanged {
		changes = append(changes, "Normalized hyperlink text")
	}
	return changes
}

// Normalize returns structurally cleaned markup. It is idempotent.
func Normalize(raw string) string {
	out, _ := NormalizeWithReport(raw)
	return out
}

// NormalizeWithReport is Normalize plus a description of what was found and changed.
// The brace report describes the input, before any edits.
func NormalizeWithReport(raw string) (string, Report) {
	report := Report{Braces: CheckBraces(raw)}

	markup := raw
	for pass := 0; pass < maxPasses; pass++ {
		next, removed := ExciseMarkerSections(markup)
		report.RemovedSections = append(report.RemovedSections, removed...)

		emphasized := CanonicalizeEmphasis(next)
		if emphasized != next {
			report.EmphasisChanged = true
		}

		linked := NormalizeLinks(emphasized)
		if linked != emphasized {
			report.LinksChanged = true
		}

		if linked == markup {
			break
		}
		markup = linked
	}

	return markup, report
}
