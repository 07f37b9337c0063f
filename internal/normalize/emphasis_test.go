package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeEmphasis(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bold", `{\bf Go}`, `\textbf{Go}`},
		{"bfseries", `{\bfseries Go}`, `\textbf{Go}`},
		{"italic", `{\it Go}`, `\textit{Go}`},
		{"itshape", `{\itshape Go}`, `\textit{Go}`},
		{"monospace", `{\tt main.go}`, `\texttt{main.go}`},
		{"small caps", `{\sc Title}`, `\textsc{Title}`},
		{"em", `{\em really}`, `\emph{really}`},
		{"nested", `{\bf a {\it b}}`, `\textbf{a \textit{b}}`},
		{"command argument keeps its group", `\item{\bf x}`, `\item{\textbf{x}}`},
		{"font size inside group untouched", `{\LARGE\bfseries Name}`, `{\LARGE\bfseries Name}`},
		{"font size before group untouched", `\Large {\bf Name}`, `\Large {\bf Name}`},
		{"escaped brace is not a group", `\{\bf x\}`, `\{\bf x\}`},
		{"item is not it", `{\item x}`, `{\item x}`},
		{"modern form untouched", `\textbf{x}`, `\textbf{x}`},
		{"group after environment start is content", `\begin{document}{\bf {\it x}}`, `\begin{document}\textbf{\textit{x}}`},
		{"group after section title is content", `\section{Skills}{\bf Go}`, `\section{Skills}\textbf{Go}`},
		{"group after a plain group is content", `{a}{\bf b}`, `{a}\textbf{b}`},
		{"second argument keeps its group", `\href{https://go.dev}{\bf site}`, `\href{https://go.dev}{\textbf{site}}`},
		{"third argument keeps its group", `\entry{a}{b}{\it c}`, `\entry{a}{b}{\textit{c}}`},
		{"optional argument keeps its group", `\item[x]{\bf y}`, `\item[x]{\textbf{y}}`},
		{"starred command keeps its group", `\cmd*{\bf y}`, `\cmd*{\textbf{y}}`},
		{"switch applied to a group", `\bf{Go} rocks`, `\textbf{Go} rocks`},
		{"switch inside an argument", `\textbf{\it x}`, `\textbf{\textit{x}}`},
		{"declaration mid group", `{Hello \bfseries world}`, `{Hello \textbf{world}}`},
		{"declaration in section title", `\section{Intro \em now}`, `\section{Intro \emph{now}}`},
		{"declaration outside any group untouched", `\begin{document}\bfseries x\end{document}`, `\begin{document}\bfseries x\end{document}`},
		{"declaration scope stops at environment end", `{\begin{center}\bfseries x\end{center}}`, `{\begin{center}\bfseries x\end{center}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalizeEmphasis(tt.input))
		})
	}
}

func TestCanonicalizeEmphasis_PreambleUntouched(t *testing.T) {
	input := "\\newcommand{\\name}{{\\bf Jane}}\n\\begin{document}\n{\\bf body}\n\\end{document}"
	expected := "\\newcommand{\\name}{{\\bf Jane}}\n\\begin{document}\n\\textbf{body}\n\\end{document}"

	assert.Equal(t, expected, CanonicalizeEmphasis(input))
}

func TestCanonicalizeEmphasis_Idempotent(t *testing.T) {
	inputs := []string{
		`\begin{document}{\bf {\it x}}`,
		`{Hello \bfseries world {\it and} more}`,
		`\href{u}{\bf a}\bf{b}`,
		`\item{\sc Name} \tt{code}`,
	}

	for _, input := range inputs {
		once := CanonicalizeEmphasis(input)
		assert.Equal(t, once, CanonicalizeEmphasis(once), input)
	}
}
