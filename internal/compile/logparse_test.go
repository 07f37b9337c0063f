package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

const sampleLog = `This is pdfTeX, Version 3.141592653-2.6-1.40.25 (TeX Live 2023) (preloaded format=pdflatex)
(./resume.tex
LaTeX2e <2023-11-01>
Overfull \hbox (12.3pt too wide) in paragraph at lines 40--41
! Undefined control sequence.
l.52 \resumeItm
               {Built things}
! LaTeX Error: File ` + "`" + `fontawesome5.sty' not found.

Type X to quit or <RETURN> to proceed,
l.7 \usepackage
               {hyperref}^^M
! Missing } inserted.
Underfull \hbox (badness 10000) in paragraph at lines 60--60
No pages of output.`

func TestParseLog(t *testing.T) {
	errs, warnings := ParseLog(sampleLog)

	require.Len(t, errs, 3)

	assert.Equal(t, CategoryUndefined, errs[0].Category)
	assert.Equal(t, 52, errs[0].Line)
	assert.Equal(t, "! Undefined control sequence.", errs[0].Message)
	assert.Equal(t, "Check spelling of command or add required package", errs[0].Suggestion)
	assert.Equal(t, types.SeverityError, errs[0].Severity)

	assert.Equal(t, CategoryLaTeX, errs[1].Category)
	assert.Equal(t, 7, errs[1].Line)
	assert.Empty(t, errs[1].Suggestion)

	assert.Equal(t, CategoryMissingClose, errs[2].Category)
	assert.Equal(t, 0, errs[2].Line)
	assert.Equal(t, "Add } after the content", errs[2].Suggestion)

	assert.Equal(t, []string{
		`Overfull box - text too wide: Overfull \hbox (12.3pt too wide) in paragraph at lines 40--41`,
		`Underfull box - text too sparse: Underfull \hbox (badness 10000) in paragraph at lines 60--60`,
	}, warnings)
}

func TestParseLog_Empty(t *testing.T) {
	errs, warnings := ParseLog("")
	assert.NotNil(t, errs)
	assert.NotNil(t, warnings)
	assert.Empty(t, errs)
	assert.Empty(t, warnings)
}

func TestParseLog_InlineLineNumber(t *testing.T) {
	errs, _ := ParseLog("! Package hyperref Error: Wrong DVI mode driver option on input line 12.")
	require.Len(t, errs, 1)
	assert.Equal(t, CategoryPackage, errs[0].Category)
	assert.Equal(t, 12, errs[0].Line)
}
