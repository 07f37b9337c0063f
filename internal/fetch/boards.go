package fetch

import (
	"net/url"
	"strings"
)

// Board is an applicant-tracking system that hosts job postings.
type Board string

// Known boards.
const (
	BoardGreenhouse Board = "greenhouse"
	BoardLever      Board = "lever"
	BoardWorkday    Board = "workday"
	BoardAshby      Board = "ashby"
	BoardGeneric    Board = "generic"
)

type boardProfile struct {
	hosts   []string
	content []string
	noise   []string
}

var boardProfiles = map[Board]boardProfile{
	BoardGreenhouse: {
		hosts:   []string{"greenhouse.io"},
		content: []string{".job__description.body", ".job__description", ".job-post-container", "#content"},
		noise:   []string{".application--wrapper", ".voluntary-self-id", "#usa_self_id_section"},
	},
	BoardLever: {
		hosts:   []string{"lever.co"},
		content: []string{".posting-page", ".posting-description", ".section-wrapper.page-full-width"},
		noise:   []string{".posting-apply", ".apply-section"},
	},
	BoardWorkday: {
		hosts:   []string{"myworkdayjobs.com", "workday.com"},
		content: []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']"},
		noise:   []string{"[data-automation-id='applyButton']"},
	},
	BoardAshby: {
		hosts:   []string{"ashbyhq.com"},
		content: []string{"[class*='descriptionText']", "main"},
		noise:   []string{"[class*='applicationForm']"},
	},
}

var genericContent = []string{
	".job-description",
	"#job-description",
	".job-details",
	"[data-testid='job-description']",
	"main",
	"article",
	"#content",
	".content",
}

// Removed from every page before extraction.
var commonNoise = []string{
	"nav", "footer", "header", "script", "style", "noscript", "form",
	".cookie-banner", ".cookie-consent", ".eeo-statement", ".social-share",
}

// DetectBoard identifies the board hosting rawURL.
func DetectBoard(rawURL string) Board {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return BoardGeneric
	}
	host := strings.ToLower(parsed.Hostname())
	for board, profile := range boardProfiles {
		for _, h := range profile.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return board
			}
		}
	}
	return BoardGeneric
}

// ContentSelectors returns the selectors tried, in order, to locate the posting body.
func (b Board) ContentSelectors() []string {
	profile, ok := boardProfiles[b]
	if !ok {
		return genericContent
	}
	return append(append([]string{}, profile.content...), genericContent...)
}

// NoiseSelectors returns the selectors removed before extraction.
func (b Board) NoiseSelectors() []string {
	return append(append([]string{}, commonNoise...), boardProfiles[b].noise...)
}
