package normalize

import (
	"regexp"
	"strings"
)

// declarativeEmphasis maps old-style and declarative font switches to their parametrized form.
var declarativeEmphasis = map[string]string{
	"bf":       "textbf",
	"bfseries": "textbf",
	"it":       "textit",
	"itshape":  "textit",
	"sl":       "textsl",
	"slshape":  "textsl",
	"tt":       "texttt",
	"ttfamily": "texttt",
	"sc":       "textsc",
	"scshape":  "textsc",
	"em":       "emph",
}

// singleArgument lists commands whose one mandatory argument is never followed by another.
// A group after their closing brace is content, not a further argument.
var singleArgument = map[string]bool{
	"begin": true, "end": true,
	"part": true, "chapter": true, "section": true, "subsection": true, "subsubsection": true, "paragraph": true,
	"textbf": true, "textit": true, "textsl": true, "texttt": true, "textsc": true, "textrm": true, "textsf": true,
	"emph": true, "underline": true, "mbox": true, "url": true, "footnote": true,
	"hspace": true, "vspace": true, "label": true, "ref": true, "cite": true,
}

var (
	// groupEmphasisPattern matches a group opening directly with a font switch, e.g. "{\bf".
	groupEmphasisPattern = regexp.MustCompile(`\{\s*\\(bfseries|itshape|slshape|ttfamily|scshape|bf|it|sl|tt|sc|em)(?:[^a-zA-Z]|$)`)
	// switchPattern matches a font switch anywhere, e.g. "\bf{x}" or "a \bfseries b".
	switchPattern        = regexp.MustCompile(`\\(bfseries|itshape|slshape|ttfamily|scshape|bf|it|sl|tt|sc|em)(?:[^a-zA-Z]|$)`)
	fontSizePattern      = regexp.MustCompile(`\\(tiny|scriptsize|footnotesize|small|normalsize|large|Large|LARGE|huge|Huge)(?:[^a-zA-Z]|$)`)
	documentBeginPattern = regexp.MustCompile(`\\begin\s*\{document\}`)
	environmentEnd       = regexp.MustCompile(`^\\end\s*\{`)
)

// fontSizeWindow is how far before a group we look for a size directive on the same line.
const fontSizeWindow = 40

// maxRewrites bounds fixed-point loops over malformed input.
const maxRewrites = 10000

// CanonicalizeEmphasis rewrites groups such as {\bf text} to \textbf{text}. The misused
// \bf{text} form and a switch in the middle of a group, as in {a \bfseries b}, are rewritten too.
// Only body content is touched: anything before \begin{document} is skipped, as is any switch
// sitting next to a font-size directive, since those are header styling.
func CanonicalizeEmphasis(markup string) string {
	bodyStart := 0
	if loc := documentBeginPattern.FindStringIndex(markup); loc != nil {
		bodyStart = loc[1]
	}

	for n := 0; n < maxRewrites; n++ {
		next, changed := rewriteFirstEmphasis(markup, bodyStart)
		if !changed {
			return markup
		}
		markup = next
	}
	return markup
}

// rewriteFirstEmphasis rewrites the first eligible switch at or after bodyStart.
func rewriteFirstEmphasis(s string, bodyStart int) (string, bool) {
	if next, ok := rewriteGroupSwitch(s, bodyStart); ok {
		return next, true
	}
	return rewriteInlineSwitch(s, bodyStart)
}

// rewriteGroupSwitch handles a group that opens with a switch: {\bf text}.
func rewriteGroupSwitch(s string, bodyStart int) (string, bool) {
	for _, loc := range groupEmphasisPattern.FindAllStringSubmatchIndex(s, -1) {
		open := loc[0]
		if open < bodyStart || isEscaped(s, open) {
			continue
		}
		close := matchingBrace(s, open)
		if close < 0 {
			continue
		}
		if nearFontSize(s, open, close) {
			continue
		}

		name := s[loc[2]:loc[3]]
		inner := strings.TrimLeft(s[loc[3]:close], " \t")
		replacement := `\` + declarativeEmphasis[name] + "{" + inner + "}"
		if isArgument(s, open) {
			// keep the group so the enclosing command still receives one argument
			replacement = "{" + replacement + "}"
		}
		return s[:open] + replacement + s[close+1:], true
	}
	return s, false
}

// rewriteInlineSwitch handles \bf{text}, and a switch in the middle of a group whose scope
// runs to the group's closing brace. A switch outside any group is left alone.
func rewriteInlineSwitch(s string, bodyStart int) (string, bool) {
	for _, loc := range switchPattern.FindAllStringSubmatchIndex(s, -1) {
		start, nameEnd := loc[0], loc[3]
		if start < bodyStart || isEscaped(s, start) || opensGroup(s, start) {
			continue
		}
		command := `\` + declarativeEmphasis[s[loc[2]:nameEnd]]

		if nameEnd < len(s) && s[nameEnd] == '{' {
			argStart, argEnd, next, ok := argument(s, nameEnd)
			if !ok || nearFontSize(s, start, argEnd) {
				continue
			}
			return s[:start] + command + "{" + s[argStart:argEnd] + "}" + s[next:], true
		}

		close := scopeEnd(s, nameEnd)
		if close < 0 || nearFontSize(s, start, close) {
			continue
		}
		inner := strings.TrimLeft(s[nameEnd:close], " \t")
		return s[:start] + command + "{" + inner + "}" + s[close:], true
	}
	return s, false
}

// opensGroup reports whether the switch at i is the first thing inside a group.
func opensGroup(s string, i int) bool {
	p := i - 1
	for p >= 0 && (s[p] == ' ' || s[p] == '\t') {
		p--
	}
	return p >= 0 && s[p] == '{' && !isEscaped(s, p)
}

// scopeEnd returns the index of the unmatched brace closing the group that contains i, or -1
// when an environment ends first or no such brace exists.
func scopeEnd(s string, i int) int {
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '{':
			if !isEscaped(s, i) {
				depth++
			}
		case '}':
			if isEscaped(s, i) {
				continue
			}
			if depth == 0 {
				return i
			}
			depth--
		case '\\':
			if depth == 0 && environmentEnd.MatchString(s[i:]) && !isEscaped(s, i) {
				return -1
			}
		}
	}
	return -1
}

// nearFontSize reports whether a size directive sits inside the group or just before it on the same line.
func nearFontSize(s string, open, close int) bool {
	if fontSizePattern.MatchString(s[open:close]) {
		return true
	}
	start := open - fontSizeWindow
	if start < 0 {
		start = 0
	}
	before := s[start:open]
	if nl := strings.LastIndexByte(before, '\n'); nl >= 0 {
		before = before[nl+1:]
	}
	return fontSizePattern.MatchString(before)
}

// isArgument reports whether the group opened at open is likely a command argument: it follows
// a control word, an optional argument, or another argument of a command taking several.
func isArgument(s string, open int) bool {
	p := open - 1
	for p >= 0 && (s[p] == ' ' || s[p] == '\t') {
		p--
	}
	if p < 0 {
		return false
	}
	switch c := s[p]; {
	case c == ']':
		return true
	case c == '*':
		_, ok := controlWordBefore(s, p+1)
		return ok
	case c == '}':
		if isEscaped(s, p) {
			return false
		}
		prev := openingBrace(s, p)
		if prev < 0 {
			return false
		}
		if name, ok := controlWordBefore(s, prev); ok {
			return !singleArgument[name]
		}
		return isArgument(s, prev)
	case isLetter(c):
		_, ok := controlWordBefore(s, p+1)
		return ok
	}
	return false
}

// controlWordBefore returns the control word ending just before i, ignoring spaces and a
// trailing star, as in "\section*".
func controlWordBefore(s string, i int) (string, bool) {
	p := i - 1
	for p >= 0 && (s[p] == ' ' || s[p] == '\t') {
		p--
	}
	if p >= 0 && s[p] == '*' {
		p--
	}
	end := p + 1
	for p >= 0 && isLetter(s[p]) {
		p--
	}
	if end == p+1 || p < 0 || s[p] != '\\' || isEscaped(s, p) {
		return "", false
	}
	return s[p+1 : end], true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
