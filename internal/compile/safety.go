package compile

import "regexp"

type safetyRule struct {
	pattern *regexp.Regexp
	message string
}

// Matched case-insensitively against the whole document, comments included.
var safetyRules = []safetyRule{
	{regexp.MustCompile(`(?i)\\write18`), "Shell escape command detected"},
	{regexp.MustCompile(`(?i)\\immediate\s*\\write18`), "Immediate shell escape detected"},
	{regexp.MustCompile(`(?i)\\input\s*\|`), "Shell pipe in input detected"},
	{regexp.MustCompile(`(?i)\\include\s*\|`), "Shell pipe in include detected"},
	{regexp.MustCompile(`(?i)\\openin`), "File input operation detected"},
	{regexp.MustCompile(`(?i)\\openout`), "File output operation detected"},
	{regexp.MustCompile(`(?i)\\catcode`), "Category code manipulation detected"},
}

// SafetyIssues returns one message per dangerous construct present in markup, in rule order.
func SafetyIssues(markup string) []string {
	var issues []string
	for _, rule := range safetyRules {
		if rule.pattern.MatchString(markup) {
			issues = append(issues, rule.message)
		}
	}
	return issues
}

// CheckSafety returns an *UnsafeMarkupError when markup contains any dangerous construct.
func CheckSafety(markup string) error {
	if issues := SafetyIssues(markup); len(issues) > 0 {
		return &UnsafeMarkupError{Issues: issues}
	}
	return nil
}
