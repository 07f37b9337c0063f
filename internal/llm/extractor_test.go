package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Example",
		Description: "Extract the fields.",
		Fields: []SchemaField{
			{Name: "title", Type: `"string"`, Description: "Job title", Required: true},
			{Name: "notes"},
		},
	}

	prompt := BuildExtractionPrompt(schema, "Senior Go Engineer at Acme")

	assert.Contains(t, prompt, "Extract the fields.\n\nReturn ONLY valid JSON")
	assert.Contains(t, prompt, "{\n  \"title\": \"string\" (required) // Job title,\n  \"notes\": string\n}")
	assert.Contains(t, prompt, "Input text:\n\"\"\"\nSenior Go Engineer at Acme\n\"\"\"\n")
}

func TestTargetAnalysisSchema(t *testing.T) {
	schema := TargetAnalysisSchema()
	required := map[string]bool{}
	for _, f := range schema.Fields {
		required[f.Name] = f.Required
	}
	assert.True(t, required["required_skills"])
	assert.True(t, required["preferred_skills"])
	assert.True(t, required["keywords"])
	assert.False(t, required["title"])
}
