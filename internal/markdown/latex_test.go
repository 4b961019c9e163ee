package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLaTeXHeadingsAndEmphasis(t *testing.T) {
	out, err := ToLaTeX([]byte("# Title\n\nHello *world* and **bold**.\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "\\section{Title}")
	assert.Contains(t, out, "\\emph{world}")
	assert.Contains(t, out, "\\textbf{bold}")
}

func TestToLaTeXHeadingLevels(t *testing.T) {
	out, err := ToLaTeX([]byte("## Second\n\n### Third\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "\\subsection{Second}")
	assert.Contains(t, out, "\\subsubsection{Third}")
}

func TestToLaTeXEscapesSpecials(t *testing.T) {
	out, err := ToLaTeX([]byte("50% of $10 & a #tag\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "50\\% of \\$10 \\& a \\#tag")
}

func TestToLaTeXCodeBlockIsVerbatim(t *testing.T) {
	out, err := ToLaTeX([]byte("```\nx := a_b & c\n```\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "\\begin{verbatim}\nx := a_b & c\n\\end{verbatim}")
}

func TestToLaTeXCodeSpan(t *testing.T) {
	out, err := ToLaTeX([]byte("use `my_func` here\n"))
	require.NoError(t, err)

	// Inline code keeps text-mode escaping for underscores.
	assert.Contains(t, out, "\\texttt{my\\_func}")
}

func TestToLaTeXLists(t *testing.T) {
	out, err := ToLaTeX([]byte("- one\n- two\n\n1. first\n2. second\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "\\begin{itemize}")
	assert.Contains(t, out, "\\item one")
	assert.Contains(t, out, "\\end{itemize}")
	assert.Contains(t, out, "\\begin{enumerate}")
	assert.Contains(t, out, "\\item first")
	assert.Contains(t, out, "\\end{enumerate}")
}

func TestToLaTeXLinks(t *testing.T) {
	out, err := ToLaTeX([]byte("see [docs](https://example.com/a#b)\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "\\href{https://example.com/a\\#b}{docs}")
}

func TestToLaTeXBlockquote(t *testing.T) {
	out, err := ToLaTeX([]byte("> quoted text\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "\\begin{quote}")
	assert.Contains(t, out, "quoted text")
	assert.Contains(t, out, "\\end{quote}")
}

func TestToDocument(t *testing.T) {
	out, err := ToDocument([]byte("# Hi\n"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "\\documentclass{article}\n"))
	assert.Contains(t, out, "\\begin{document}")
	assert.Contains(t, out, "\\section{Hi}")
	assert.True(t, strings.HasSuffix(out, "\\end{document}\n"))
}

func TestEscape(t *testing.T) {
	cases := map[string]string{
		"a_b":     "a\\_b",
		"100%":    "100\\%",
		"x{y}":    "x\\{y\\}",
		"a\\b":    "a\\textbackslash{}b",
		"~ and ^": "\\textasciitilde{} and \\textasciicircum{}",
		"plain":   "plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, Escape(in), "input %q", in)
	}
}
