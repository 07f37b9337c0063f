package normalize

// isEscaped reports whether the byte at i is preceded by an odd run of backslashes.
func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// matchingBrace returns the index of the brace closing the group opened at open, or -1.
// Escaped braces are ignored.
func matchingBrace(s string, open int) int {
	if open < 0 || open >= len(s) || s[open] != '{' {
		return -1
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			if !isEscaped(s, i) {
				depth++
			}
		case '}':
			if !isEscaped(s, i) {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}

// openingBrace returns the index of the brace opening the group closed at close, or -1.
func openingBrace(s string, close int) int {
	if close < 0 || close >= len(s) || s[close] != '}' {
		return -1
	}
	depth := 0
	for i := close; i >= 0; i-- {
		switch s[i] {
		case '}':
			if !isEscaped(s, i) {
				depth++
			}
		case '{':
			if !isEscaped(s, i) {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}

// skipSpaces returns the first index at or after i that is not a space, tab or newline.
func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// argument reads a brace group starting at or after i (leading whitespace allowed).
// It returns the content bounds and the index just past the closing brace.
func argument(s string, i int) (start, end, next int, ok bool) {
	i = skipSpaces(s, i)
	if i >= len(s) || s[i] != '{' {
		return 0, 0, 0, false
	}
	close := matchingBrace(s, i)
	if close < 0 {
		return 0, 0, 0, false
	}
	return i + 1, close, close + 1, true
}
