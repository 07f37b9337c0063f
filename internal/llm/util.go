package llm

import "strings"

// CleanJSONBlock removes markdown fences and any conversational text around a JSON value.
func CleanJSONBlock(text string) string {
	text = stripFence(strings.TrimSpace(text), "json")

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		if v := extractJSONValue(text); v != "" {
			return v
		}
		return text
	}

	// Preamble before the JSON value
	if idx := strings.IndexAny(text, "{["); idx >= 0 {
		if v := extractJSONValue(text[idx:]); v != "" {
			return v
		}
	}
	return text
}

// CleanMarkupBlock strips a ```latex or bare ``` fence wrapped around generated markup.
func CleanMarkupBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```latex") {
		text = strings.TrimPrefix(text, "```latex")
	} else if strings.HasPrefix(text, "```tex") {
		text = strings.TrimPrefix(text, "```tex")
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// stripFence removes a leading ```lang or ``` line and the closing fence.
func stripFence(text, lang string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if strings.HasPrefix(text, lang) {
		text = strings.TrimPrefix(text, lang)
	} else if idx := strings.Index(text, "\n"); idx >= 0 {
		// Skip a language identifier on the first line
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func extractJSONValue(text string) string {
	if strings.HasPrefix(text, "[") {
		return extractJSONArray(text)
	}
	return extractJSONObject(text)
}

// extractJSONObject returns the balanced object at the start of text, or "".
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray returns the balanced array at the start of text, or "".
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractBalanced scans from an opening delimiter to its match, ignoring delimiters inside strings.
func extractBalanced(text string, open, close byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
