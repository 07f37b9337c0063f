package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// GenericLinkLabel is used when a URL's domain is not in the known-service table.
const GenericLinkLabel = "Link"

// knownServices maps domains to the label shown in place of a raw URL.
var knownServices = []struct {
	domain string
	label  string
}{
	{"github.com", "GitHub"},
	{"github.io", "Website"},
	{"gitlab.com", "GitLab"},
	{"bitbucket.org", "Bitbucket"},
	{"linkedin.com", "LinkedIn"},
	{"twitter.com", "Twitter"},
	{"x.com", "Twitter"},
	{"medium.com", "Medium"},
	{"dev.to", "DEV"},
	{"stackoverflow.com", "Stack Overflow"},
	{"kaggle.com", "Kaggle"},
	{"huggingface.co", "Hugging Face"},
	{"youtube.com", "YouTube"},
	{"youtu.be", "YouTube"},
	{"npmjs.com", "npm"},
	{"pypi.org", "PyPI"},
	{"arxiv.org", "arXiv"},
	{"devpost.com", "Devpost"},
	{"vercel.app", "Demo"},
	{"netlify.app", "Demo"},
	{"herokuapp.com", "Demo"},
}

var (
	hrefPattern       = regexp.MustCompile(`\\href\s*\{`)
	underlinePattern  = regexp.MustCompile(`\\underline\s*\{`)
	rawURLPattern     = regexp.MustCompile(`^(?:https?://|www\.)\S+$`)
	bareDomainPattern = regexp.MustCompile(`(?i)^[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|org|net|io|dev|co|app|me|ai|edu|gov|info|xyz|tech|us|uk|in|ca|de)(?:/\S*)?$`)
	projectsTitle     = regexp.MustCompile(`(?i)project|portfolio`)
	iconCommand       = regexp.MustCompile(`^(?:\\(?:fa|ai)[A-Za-z]*\*?(?:\{[^{}]*\})?|\\(?:small|footnotesize|scriptsize|tiny|normalsize)|\\,|~|\s)+$`)
	iconName          = regexp.MustCompile(`\\(?:fa|ai)[A-Za-z]*`)
)

// href is the parsed form of \href{target}{text}.
type href struct {
	start, end             int
	targetStart, targetEnd int
	textStart, textEnd     int
}

// parseHref parses the \href whose backslash is at i.
func parseHref(s string, i, argStart int) (href, bool) {
	ts, te, next, ok := argument(s, argStart)
	if !ok {
		return href{}, false
	}
	xs, xe, end, ok := argument(s, next)
	if !ok {
		return href{}, false
	}
	return href{start: i, end: end, targetStart: ts, targetEnd: te, textStart: xs, textEnd: xe}, true
}

// NormalizeLinks unwraps underlined link text, replaces raw URLs shown as link text with a
// service label, and replaces icon-only link bodies in project sections with a label.
func NormalizeLinks(markup string) string {
	markup = unwrapUnderlinedLinks(markup)
	return rewriteHrefText(markup)
}

// unwrapUnderlinedLinks turns \underline{\href{u}{t}} into \href{u}{t}. Underlines inside link text
// are handled by rewriteHrefText.
func unwrapUnderlinedLinks(s string) string {
	for n := 0; n < maxRewrites; n++ {
		changed := false
		for _, loc := range underlinePattern.FindAllStringIndex(s, -1) {
			if isEscaped(s, loc[0]) {
				continue
			}
			start, end, next, ok := argument(s, loc[1]-1)
			if !ok {
				continue
			}
			inner := strings.TrimSpace(s[start:end])
			if !strings.HasPrefix(inner, `\href`) {
				continue
			}
			m := hrefPattern.FindStringIndex(inner)
			if m == nil || m[0] != 0 {
				continue
			}
			if h, ok := parseHref(inner, 0, m[1]-1); !ok || h.end != len(inner) {
				continue
			}
			s = s[:loc[0]] + inner + s[next:]
			changed = true
			break
		}
		if !changed {
			return s
		}
	}
	return s
}

func rewriteHrefText(s string) string {
	projectSpans := sectionSpans(s, projectsTitle)

	var out strings.Builder
	last := 0
	for _, loc := range hrefPattern.FindAllStringIndex(s, -1) {
		if loc[0] < last || isEscaped(s, loc[0]) {
			continue
		}
		h, ok := parseHref(s, loc[0], loc[1]-1)
		if !ok {
			continue
		}

		target := s[h.targetStart:h.targetEnd]
		text := s[h.textStart:h.textEnd]
		newText := linkText(target, text, inSpans(projectSpans, loc[0]))
		if newText == text {
			continue
		}

		out.WriteString(s[last:h.textStart])
		out.WriteString(newText)
		last = h.textEnd
	}
	if last == 0 {
		return s
	}
	out.WriteString(s[last:])
	return out.String()
}

// linkText returns the normalized visible text for a link.
func linkText(target, text string, inProjects bool) string {
	text = stripUnderline(text)

	if isRawURL(text) {
		return labelFor(target, text)
	}
	if inProjects && isIconOnly(text) {
		return labelFor(target, "")
	}
	return text
}

// stripUnderline removes every \underline{...} wrapper, keeping its content.
func stripUnderline(s string) string {
	for n := 0; n < maxRewrites; n++ {
		loc := underlinePattern.FindStringIndex(s)
		if loc == nil {
			return s
		}
		start, end, next, ok := argument(s, loc[1]-1)
		if !ok {
			return s
		}
		s = s[:loc[0]] + s[start:end] + s[next:]
	}
	return s
}

// isRawURL reports whether visible link text is itself a URL.
func isRawURL(text string) bool {
	t := unescapeURLText(text)
	if t == "" || strings.ContainsAny(t, " \t\n") {
		return false
	}
	return rawURLPattern.MatchString(t) || bareDomainPattern.MatchString(t)
}

// isIconOnly reports whether link text is nothing but icon glyph commands.
func isIconOnly(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && iconCommand.MatchString(t) && iconName.MatchString(t)
}

// labelFor picks a label from the link target, falling back to the shown text.
func labelFor(target, text string) string {
	for _, candidate := range []string{target, text} {
		host := hostOf(unescapeURLText(candidate))
		if host == "" {
			continue
		}
		for _, svc := range knownServices {
			if host == svc.domain || strings.HasSuffix(host, "."+svc.domain) {
				return svc.label
			}
		}
	}
	return GenericLinkLabel
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "mailto:") {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// unescapeURLText undoes markup escaping and a \url{} wrapper so the text can be inspected as a URL.
func unescapeURLText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `\url{`) && strings.HasSuffix(s, "}") {
		s = s[len(`\url{`) : len(s)-1]
	}
	if strings.HasPrefix(s, `\texttt{`) && strings.HasSuffix(s, "}") {
		s = s[len(`\texttt{`) : len(s)-1]
	}
	r := strings.NewReplacer(`\_`, "_", `\%`, "%", `\#`, "#", `\&`, "&", `\~{}`, "~", `\textasciitilde{}`, "~")
	return strings.TrimSpace(r.Replace(s))
}

// sectionSpans returns [start, end) ranges of sections whose title matches pattern.
func sectionSpans(s string, pattern *regexp.Regexp) [][2]int {
	starts := sectionStartPattern.FindAllStringIndex(s, -1)
	if len(starts) == 0 {
		return nil
	}
	docEnd := len(s)
	if loc := documentEndPattern.FindStringIndex(s); loc != nil {
		docEnd = loc[0]
	}

	var spans [][2]int
	for i, loc := range starts {
		end := docEnd
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if end < loc[0] {
			end = len(s)
		}
		if pattern.MatchString(sectionTitle(s[loc[0]:end])) {
			spans = append(spans, [2]int{loc[0], end})
		}
	}
	return spans
}

func inSpans(spans [][2]int, pos int) bool {
	for _, sp := range spans {
		if pos >= sp[0] && pos < sp[1] {
			return true
		}
	}
	return false
}
