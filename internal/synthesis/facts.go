package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

// FormatFacts renders a facts bundle as the plain-text <user_data> block of the prompt.
// Employment and education headings are written only when entries exist, so the generator
// has nothing to hang an empty section on.
func FormatFacts(b *types.FactsBundle) string {
	if b == nil {
		return ""
	}

	var lines []string

	personal := personalFields(&b.Personal)
	if len(personal) > 0 {
		lines = append(lines, "PERSONAL INFORMATION:")
		for _, f := range personal {
			lines = append(lines, fmt.Sprintf("  %s: %s", f[0], f[1]))
		}
	}

	if len(b.Skills) > 0 {
		lines = append(lines, "", "SKILLS: "+strings.Join(b.Skills, ", "))
	}

	if len(b.Items) > 0 {
		lines = append(lines, "", "PROJECTS:")
		for i := range b.Items {
			lines = append(lines, formatItem(i+1, &b.Items[i])...)
		}
	}

	if b.HasEmployment() {
		lines = append(lines, "", "WORK EXPERIENCE:")
		for i, e := range b.Employment {
			lines = append(lines,
				"",
				fmt.Sprintf("  Experience %d:", i+1),
				"    Company: "+orNA(e.Company),
				"    Title: "+orNA(e.Title),
				"    Dates: "+orNA(e.Dates),
			)
			if e.Location != "" {
				lines = append(lines, "    Location: "+e.Location)
			}
			if len(e.Highlights) > 0 {
				lines = append(lines, "    Responsibilities:")
				for _, h := range e.Highlights {
					lines = append(lines, "      - "+h)
				}
			}
		}
	}

	if b.HasEducation() {
		lines = append(lines, "", "EDUCATION:")
		for i, e := range b.Education {
			lines = append(lines,
				"",
				fmt.Sprintf("  Education %d:", i+1),
				"    School: "+orNA(e.School),
				"    Degree: "+orNA(e.Degree),
			)
			if e.Field != "" {
				lines = append(lines, "    Field: "+e.Field)
			}
			lines = append(lines, "    Dates: "+orNA(e.Dates))
			if e.Location != "" {
				lines = append(lines, "    Location: "+e.Location)
			}
			if e.GPA != "" {
				lines = append(lines, "    GPA: "+e.GPA)
			}
		}
	}

	keys := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, "", fmt.Sprintf("%s: %s", strings.ToUpper(k), formatExtra(b.Extra[k])))
	}

	return strings.Join(lines, "\n")
}

func formatItem(n int, item *types.ContentItem) []string {
	lines := []string{
		"",
		fmt.Sprintf("  Project %d:", n),
		"    Title: " + orNA(item.Title),
		"    Description: " + orNA(item.Description),
	}
	if len(item.Tags) > 0 {
		lines = append(lines, "    Technologies: "+strings.Join(item.Tags, ", "))
	}
	if len(item.Highlights) > 0 {
		lines = append(lines, "    Achievements:")
		for _, h := range item.Highlights {
			lines = append(lines, "      - "+h)
		}
	}
	if item.URL != "" {
		lines = append(lines, "    URL: "+item.URL)
	}
	if dates := item.DateRange(); dates != "" {
		lines = append(lines, "    Dates: "+dates)
	}
	return lines
}

// personalFields returns the non-empty contact fields in a stable order.
func personalFields(p *types.PersonalInfo) [][2]string {
	var fields [][2]string
	add := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fields = append(fields, [2]string{k, v})
		}
	}
	add("name", p.Name)
	add("email", p.Email)
	add("phone", p.Phone)
	add("location", p.Location)
	add("linkedin", p.LinkedInURL)
	add("github", p.GitHubURL)
	add("website", p.Website)
	add("headline", p.Headline)
	add("summary", p.Summary)

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, p.Extra[k])
	}
	return fields
}

func formatExtra(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// formatTargetContext renders the optional target block; empty when there is no target.
func formatTargetContext(target *types.TargetContext) (string, error) {
	if target == nil || (target.Title == "" && target.Company == "" && len(target.RequiredSkills) == 0) {
		return "", nil
	}
	skills := target.RequiredSkills
	if len(skills) > maxTargetSkills {
		skills = skills[:maxTargetSkills]
	}
	return renderPrompt("target-context", map[string]string{
		"Title":          orNA(target.Title),
		"Company":        orNA(target.Company),
		"RequiredSkills": strings.Join(skills, ", "),
	})
}
