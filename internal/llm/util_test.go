package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json code block", "```json\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"generic code block", "```\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"code block with language", "```javascript\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"plain JSON", `{"key": "value"}`, `{"key": "value"}`},
		{"preamble before object", "Here is the JSON:\n{\"company\": \"Acme\"}", `{"company": "Acme"}`},
		{"preamble before array", "Here are the items:\n[\"a\", \"b\"]", `["a", "b"]`},
		{"trailing text", "{\"key\": \"value\"}\n\nLet me know!", `{"key": "value"}`},
		{"braces inside strings", `Result: {"template": "Hello {name}!"}`, `{"template": "Hello {name}!"}`},
		{"escaped quotes", "Result: {\"m\": \"He said \\\"hi\\\"\"}", `{"m": "He said \"hi\""}`},
		{"no json at all", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`{"a": {"b": 1}} tail`))
	assert.Equal(t, `[[1, 2], [3]]`, extractJSONArray(`[[1, 2], [3]] tail`))
	assert.Equal(t, "", extractJSONObject("not json"))
	assert.Equal(t, "", extractJSONObject(`{"unterminated": 1`))
	assert.Equal(t, "", extractJSONArray(""))
}

func TestCleanMarkupBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"latex fence", "```latex\n\\documentclass{article}\n```", `\documentclass{article}`},
		{"bare fence", "```\n\\section{A}\n```\n", `\section{A}`},
		{"no fence", "  \\begin{document}  ", `\begin{document}`},
		{"opening fence only", "```latex\n\\end{document}", `\end{document}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanMarkupBlock(tt.input))
		})
	}
}
