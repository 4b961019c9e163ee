// Package markdown converts Markdown bodies into LaTeX source so callers can
// submit plain Markdown and still receive a compiled document.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ToLaTeX converts a Markdown body into a LaTeX fragment (no preamble).
func ToLaTeX(body []byte) (string, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	c := &converter{source: body}
	if err := gmast.Walk(root, c.walk); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return strings.TrimLeft(c.out.String(), "\n"), nil
}

// ToDocument wraps the converted fragment in a minimal standalone preamble.
func ToDocument(body []byte) (string, error) {
	fragment, err := ToLaTeX(body)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("\\documentclass{article}\n")
	b.WriteString("\\usepackage[T1]{fontenc}\n")
	b.WriteString("\\usepackage[utf8]{inputenc}\n")
	b.WriteString("\\usepackage{hyperref}\n")
	b.WriteString("\\begin{document}\n")
	b.WriteString(fragment)
	if !strings.HasSuffix(fragment, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\\end{document}\n")
	return b.String(), nil
}

type converter struct {
	source []byte
	out    strings.Builder
}

var sectionCommands = map[int]string{
	1: "\\section",
	2: "\\subsection",
	3: "\\subsubsection",
	4: "\\paragraph",
	5: "\\subparagraph",
	6: "\\subparagraph",
}

func (c *converter) walk(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
	switch node := n.(type) {
	case *gmast.Document:
		// Nothing to emit.

	case *gmast.Heading:
		if entering {
			c.out.WriteString("\n" + sectionCommands[node.Level] + "{")
		} else {
			c.out.WriteString("}\n")
		}

	case *gmast.Paragraph:
		if entering {
			c.out.WriteString("\n")
		} else {
			c.out.WriteString("\n")
		}

	case *gmast.Text:
		if entering {
			c.out.WriteString(Escape(string(node.Segment.Value(c.source))))
			if node.HardLineBreak() {
				c.out.WriteString("\\\\\n")
			} else if node.SoftLineBreak() {
				c.out.WriteString("\n")
			}
		}

	case *gmast.String:
		if entering {
			c.out.WriteString(Escape(string(node.Value)))
		}

	case *gmast.Emphasis:
		cmd := "\\emph{"
		if node.Level >= 2 {
			cmd = "\\textbf{"
		}
		if entering {
			c.out.WriteString(cmd)
		} else {
			c.out.WriteString("}")
		}

	case *gmast.CodeSpan:
		if entering {
			c.out.WriteString("\\texttt{")
		} else {
			c.out.WriteString("}")
		}

	case *gmast.Link:
		if entering {
			c.out.WriteString("\\href{" + escapeURL(string(node.Destination)) + "}{")
		} else {
			c.out.WriteString("}")
		}

	case *gmast.Image:
		// No asset pipeline here; degrade to a link on the image source.
		if entering {
			c.out.WriteString("\\href{" + escapeURL(string(node.Destination)) + "}{")
		} else {
			c.out.WriteString("}")
		}

	case *gmast.AutoLink:
		if entering {
			c.out.WriteString("\\url{" + escapeURL(string(node.URL(c.source))) + "}")
		}
		return gmast.WalkSkipChildren, nil

	case *gmast.FencedCodeBlock:
		if entering {
			c.writeVerbatim(node)
		}
		return gmast.WalkSkipChildren, nil

	case *gmast.CodeBlock:
		if entering {
			c.writeVerbatim(node)
		}
		return gmast.WalkSkipChildren, nil

	case *gmast.List:
		env := "itemize"
		if node.IsOrdered() {
			env = "enumerate"
		}
		if entering {
			c.out.WriteString("\n\\begin{" + env + "}\n")
		} else {
			c.out.WriteString("\\end{" + env + "}\n")
		}

	case *gmast.ListItem:
		if entering {
			c.out.WriteString("\\item ")
		} else {
			c.out.WriteString("\n")
		}

	case *gmast.TextBlock:
		// Tight list item content; no paragraph spacing.

	case *gmast.Blockquote:
		if entering {
			c.out.WriteString("\n\\begin{quote}\n")
		} else {
			c.out.WriteString("\\end{quote}\n")
		}

	case *gmast.ThematicBreak:
		if entering {
			c.out.WriteString("\n\\noindent\\hrulefill\n")
		}

	case *gmast.HTMLBlock, *gmast.RawHTML:
		// Raw HTML has no LaTeX counterpart; drop it.
		return gmast.WalkSkipChildren, nil
	}

	return gmast.WalkContinue, nil
}

func (c *converter) writeVerbatim(node interface {
	Lines() *text.Segments
}) {
	c.out.WriteString("\n\\begin{verbatim}\n")
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		c.out.Write(seg.Value(c.source))
	}
	c.out.WriteString("\\end{verbatim}\n")
}

// latexEscapes maps characters that are special in LaTeX text mode.
var latexEscapes = map[rune]string{
	'\\': "\\textbackslash{}",
	'&':  "\\&",
	'%':  "\\%",
	'$':  "\\$",
	'#':  "\\#",
	'_':  "\\_",
	'{':  "\\{",
	'}':  "\\}",
	'~':  "\\textasciitilde{}",
	'^':  "\\textasciicircum{}",
}

// Escape makes arbitrary text safe in LaTeX text mode.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if esc, ok := latexEscapes[r]; ok {
			b.WriteString(esc)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeURL escapes only what breaks \href and \url arguments.
func escapeURL(s string) string {
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "#", "\\#")
	return s
}
