package synthesis

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/prompts"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// TailorTemperature is slightly higher than synthesis to allow rephrasing.
const TailorTemperature float32 = 0.3

const maxTailorKeywords = 10

type tailorResponse struct {
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
}

// TailorItem rephrases an item's description and highlights toward the target keywords.
// It never fails: on any error the item is returned unchanged.
func (s *Synthesizer) TailorItem(ctx context.Context, item types.ContentItem, keywords []string) types.ContentItem {
	if len(keywords) > maxTailorKeywords {
		keywords = keywords[:maxTailorKeywords]
	}

	highlights := make([]string, len(item.Highlights))
	for i, h := range item.Highlights {
		highlights[i] = "- " + h
	}

	prompt, err := renderPrompt("tailor-item", map[string]string{
		"Keywords":     strings.Join(keywords, ", "),
		"Title":        item.Title,
		"Description":  item.Description,
		"Technologies": strings.Join(item.Tags, ", "),
		"Highlights":   strings.Join(highlights, "\n"),
	})
	if err != nil {
		log.Printf("[synthesis] tailoring prompt for %s: %v", item.ID, err)
		return item
	}
	system, err := prompts.Get(promptFile, "tailor-system")
	if err != nil {
		log.Printf("[synthesis] tailoring system prompt: %v", err)
		return item
	}

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.GenerateOptions{
		Tier:              llm.TierStandard,
		SystemInstruction: system,
		Temperature:       llm.Temperature(TailorTemperature),
	})
	if err != nil {
		log.Printf("[synthesis] tailoring %s failed: %v", item.ID, err)
		return item
	}

	var resp tailorResponse
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &resp); err != nil {
		log.Printf("[synthesis] tailoring %s returned invalid JSON: %v", item.ID, err)
		return item
	}

	tailored := item
	if strings.TrimSpace(resp.Description) != "" {
		tailored.Description = resp.Description
	}
	if len(resp.Highlights) > 0 {
		tailored.Highlights = resp.Highlights
	}
	return tailored
}
