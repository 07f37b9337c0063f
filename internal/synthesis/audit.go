package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/normalize"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

var (
	requiredFieldPattern = regexp.MustCompile(`\[REQUIRED:\s*([^\]]*)\]`)

	// placeholderPattern matches template tokens such as {{NAME}}, {{#EXPERIENCE}} or {{/EXPERIENCE}}.
	placeholderPattern = regexp.MustCompile(`\{\{\s*[#/^]?[A-Za-z_][\w.]*\s*\}\}`)

	// fabricationPatterns catch numbers that often appear in invented achievements.
	fabricationPatterns = []struct {
		pattern *regexp.Regexp
		desc    string
	}{
		{regexp.MustCompile(`\d+%`), "percentage"},
		{regexp.MustCompile(`\$[\d,]+`), "dollar amount"},
		{regexp.MustCompile(`\d+x`), "multiplier"},
	}

	unescapeMetrics = strings.NewReplacer(`\%`, "%", `\$`, "$")
)

// AuditGrounding returns a warning for every unresolved required-field marker, every template
// placeholder left in markup, and every metric-like number that does not appear literally in
// the facts bundle. Repeated markers each get their own warning.
// It is a heuristic and proves nothing about the absence of fabrication.
func AuditGrounding(markup string, facts *types.FactsBundle) []string {
	var warnings []string

	matches := requiredFieldPattern.FindAllStringSubmatch(markup, -1)
	for _, m := range matches {
		field := strings.TrimSpace(m[1])
		if field == "" {
			field = "unknown"
		}
		warnings = append(warnings, fmt.Sprintf("Missing required field: %s", field))
	}
	// markers without a closing bracket still count
	if n := strings.Count(markup, normalize.RequiredMarker) - len(matches); n > 0 {
		warnings = append(warnings, fmt.Sprintf("Missing required field: %d unterminated marker(s)", n))
	}

	for _, token := range placeholderPattern.FindAllString(markup, -1) {
		warnings = append(warnings, fmt.Sprintf("Unresolved template placeholder: %s", token))
	}

	text := unescapeMetrics.Replace(markup)
	source := unescapeMetrics.Replace(bundleText(facts))
	for _, fp := range fabricationPatterns {
		for _, match := range fp.pattern.FindAllString(text, -1) {
			if !strings.Contains(source, match) {
				warnings = append(warnings, fmt.Sprintf("Potential ungrounded %s: %s", fp.desc, match))
			}
		}
	}

	return warnings
}

// bundleText is every fact in the bundle as one string, for literal containment checks.
func bundleText(facts *types.FactsBundle) string {
	if facts == nil {
		return ""
	}
	return FormatFacts(facts)
}
