package normalize

import (
	"regexp"
	"strings"
)

// RequiredMarker prefixes a placeholder for a required field the generator could not fill.
const RequiredMarker = "[REQUIRED:"

var (
	sectionStartPattern = regexp.MustCompile(`\\section\*?\s*\{`)
	documentEndPattern  = regexp.MustCompile(`\\end\s*\{document\}`)
)

// ExciseMarkerSections removes every section block containing RequiredMarker, header included.
// A block runs from its \section to the next \section or \end{document}. Text before the first
// section and from \end{document} onward is always kept. Returns the removed section titles.
func ExciseMarkerSections(markup string) (string, []string) {
	return exciseSections(markup, func(_, block string) bool {
		return strings.Contains(block, RequiredMarker)
	})
}

// ExciseTitledSections removes every section block whose title equals one of titles,
// ignoring case and surrounding space. Block boundaries are those of ExciseMarkerSections.
func ExciseTitledSections(markup string, titles ...string) (string, []string) {
	if len(titles) == 0 {
		return markup, nil
	}
	return exciseSections(markup, func(title, _ string) bool {
		for _, t := range titles {
			if strings.EqualFold(title, strings.TrimSpace(t)) {
				return true
			}
		}
		return false
	})
}

func exciseSections(markup string, drop func(title, block string) bool) (string, []string) {
	starts := sectionStartPattern.FindAllStringIndex(markup, -1)
	if len(starts) == 0 {
		return markup, nil
	}

	end := len(markup)
	if loc := documentEndPattern.FindStringIndex(markup[starts[0][0]:]); loc != nil {
		end = starts[0][0] + loc[0]
	}

	var kept strings.Builder
	var removed []string
	for i, loc := range starts {
		if loc[0] >= end {
			break
		}
		stop := end
		if i+1 < len(starts) && starts[i+1][0] < end {
			stop = starts[i+1][0]
		}
		block := markup[loc[0]:stop]
		if title := sectionTitle(block); drop(title, block) {
			removed = append(removed, title)
			continue
		}
		kept.WriteString(block)
	}

	if len(removed) == 0 {
		return markup, nil
	}
	return markup[:starts[0][0]] + kept.String() + markup[end:], removed
}

// sectionTitle returns the braced title of a block starting with \section.
func sectionTitle(block string) string {
	open := strings.IndexByte(block, '{')
	if open < 0 {
		return "Unknown"
	}
	close := matchingBrace(block, open)
	if close < 0 {
		return "Unknown"
	}
	title := strings.TrimSpace(block[open+1 : close])
	if title == "" {
		return "Unknown"
	}
	return title
}
