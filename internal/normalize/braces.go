package normalize

import "fmt"

// BraceReport is the result of a brace balance scan.
type BraceReport struct {
	Open  int `json:"open"`
	Close int `json:"close"`
	// UnmatchedClose counts closing braces seen with no open group.
	UnmatchedClose int `json:"unmatched_close"`
	// UnclosedOpen counts groups still open at the end of input.
	UnclosedOpen int `json:"unclosed_open"`
}

// Balanced reports whether every group closes and nothing closes early.
func (r BraceReport) Balanced() bool {
	return r.UnmatchedClose == 0 && r.UnclosedOpen == 0
}

// String describes an imbalance for warnings.
func (r BraceReport) String() string {
	if r.Balanced() {
		return fmt.Sprintf("balanced braces (%d pairs)", r.Open)
	}
	return fmt.Sprintf("unbalanced braces: %d opening, %d closing", r.Open, r.Close)
}

// CheckBraces scans markup and counts structural braces. Escaped braces and comments are skipped.
// It only detects; nothing is repaired.
func CheckBraces(markup string) BraceReport {
	var r BraceReport
	depth := 0

	for i := 0; i < len(markup); i++ {
		switch markup[i] {
		case '%':
			if isEscaped(markup, i) {
				continue
			}
			for i < len(markup) && markup[i] != '\n' {
				i++
			}
		case '{':
			if isEscaped(markup, i) {
				continue
			}
			r.Open++
			depth++
		case '}':
			if isEscaped(markup, i) {
				continue
			}
			r.Close++
			if depth == 0 {
				r.UnmatchedClose++
				continue
			}
			depth--
		}
	}

	r.UnclosedOpen = depth
	return r
}
