package compile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

// Diagnostic categories.
const (
	CategoryLaTeX          = "LaTeX Error"
	CategoryUndefined      = "Undefined command"
	CategoryMissingDollar  = "Math mode error - missing $"
	CategoryMissingOpen    = "Missing opening brace"
	CategoryMissingClose   = "Missing closing brace"
	CategoryExtraClose     = "Extra closing brace or missing $"
	CategoryPackage        = "Package error"
	CategoryOverfull       = "Overfull box - text too wide"
	CategoryUnderfull      = "Underfull box - text too sparse"
	CategorySafety         = "Safety violation"
	CategoryTimeout        = "Timeout"
	CategoryNoCompiler     = "No compiler"
	CategoryBackendFailure = "Compilation failed"
)

type logRule struct {
	pattern  *regexp.Regexp
	category string
	warning  bool
}

var logRules = []logRule{
	{pattern: regexp.MustCompile(`! LaTeX Error: (.+)`), category: CategoryLaTeX},
	{pattern: regexp.MustCompile(`! Undefined control sequence`), category: CategoryUndefined},
	{pattern: regexp.MustCompile(`! Missing \$ inserted`), category: CategoryMissingDollar},
	{pattern: regexp.MustCompile(`! Missing \{ inserted`), category: CategoryMissingOpen},
	{pattern: regexp.MustCompile(`! Missing \} inserted`), category: CategoryMissingClose},
	{pattern: regexp.MustCompile(`! Extra \}, or forgotten \$`), category: CategoryExtraClose},
	{pattern: regexp.MustCompile(`! Package (.+) Error: (.+)`), category: CategoryPackage},
	{pattern: regexp.MustCompile(`Overfull \\hbox`), category: CategoryOverfull, warning: true},
	{pattern: regexp.MustCompile(`Underfull \\hbox`), category: CategoryUnderfull, warning: true},
}

var suggestions = map[string]string{
	CategoryUndefined:     "Check spelling of command or add required package",
	CategoryMissingDollar: "Wrap mathematical expressions in $ symbols",
	CategoryMissingOpen:   "Add { before the content",
	CategoryMissingClose:  "Add } after the content",
	CategoryExtraClose:    "Remove extra } or add missing $",
	CategorySafety:        "Remove the command; shell escape and raw file access are not allowed",
	CategoryTimeout:       "Simplify the document or check for infinite loops",
	CategoryNoCompiler:    "Install Docker or TeX Live, or configure the remote compilation service",
}

var (
	inlineLinePattern  = regexp.MustCompile(`l\.(\d+)|line (\d+)`)
	contextLinePattern = regexp.MustCompile(`^l\.(\d+)`)
)

// TeX prints the offending source line a few lines after the "!" message.
const lineLookahead = 6

// Suggestion returns the canned remediation for a category, or "".
func Suggestion(category string) string {
	return suggestions[category]
}

// ParseLog extracts structured errors and layout warnings from a compiler log.
func ParseLog(log string) ([]types.CompilationError, []string) {
	errs := []types.CompilationError{}
	warnings := []string{}

	lines := strings.Split(log, "\n")
	for i, line := range lines {
		for _, rule := range logRules {
			if !rule.pattern.MatchString(line) {
				continue
			}
			msg := strings.TrimSpace(line)
			if rule.warning {
				warnings = append(warnings, rule.category+": "+msg)
				continue
			}
			errs = append(errs, types.CompilationError{
				Line:       lineNumber(lines, i),
				Message:    msg,
				Severity:   types.SeverityError,
				Category:   rule.category,
				Suggestion: Suggestion(rule.category),
			})
		}
	}
	return errs, warnings
}

func lineNumber(lines []string, i int) int {
	if m := inlineLinePattern.FindStringSubmatch(lines[i]); m != nil {
		return atoi(m[1], m[2])
	}
	if !strings.HasPrefix(lines[i], "!") {
		return 0
	}
	for j := i + 1; j < len(lines) && j <= i+lineLookahead; j++ {
		if strings.HasPrefix(lines[j], "!") {
			break
		}
		if m := contextLinePattern.FindStringSubmatch(lines[j]); m != nil {
			return atoi(m[1])
		}
	}
	return 0
}

func atoi(candidates ...string) int {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if n, err := strconv.Atoi(c); err == nil {
			return n
		}
	}
	return 0
}
