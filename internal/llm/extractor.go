package llm

import (
	"cmp"
	"fmt"
	"strings"
)

// ExtractionSchema describes the JSON object a structured-output call should return.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "TargetAnalysis")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt renders schema as a JSON skeleton followed by the quoted input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\nReturn ONLY valid JSON matching this exact structure:\n{\n", schema.Description)

	lines := make([]string, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		line := fmt.Sprintf("  %q: %s", field.Name, cmp.Or(field.Type, "string"))
		if field.Required {
			line += " (required)"
		}
		if field.Description != "" {
			line += " // " + field.Description
		}
		lines = append(lines, line)
	}
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")
	fmt.Fprintf(&sb, "Input text:\n\"\"\"\n%s\n\"\"\"\n", inputText)
	return sb.String()
}

// TargetAnalysisSchema describes the structured form of a job posting used to bias ranking.
func TargetAnalysisSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "TargetAnalysis",
		Description: `Analyze this job description and extract structured information.
List skills the way the posting names them (e.g. "Go", "PostgreSQL"), one skill per entry.`,
		Fields: []SchemaField{
			{Name: "title", Type: "\"string\"", Description: "Job title"},
			{Name: "company", Type: "\"string\"", Description: "Company name if mentioned"},
			{Name: "required_skills", Type: "[\"string\"]", Description: "Explicitly required technical skills", Required: true},
			{Name: "preferred_skills", Type: "[\"string\"]", Description: "Nice-to-have skills", Required: true},
			{Name: "keywords", Type: "[\"string\"]", Description: "Important technical keywords and concepts", Required: true},
			{Name: "experience_level", Type: "\"string\"", Description: "Seniority or years of experience if mentioned"},
		},
	}
}
