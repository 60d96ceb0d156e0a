package renderer

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	mdp "github.com/gomarkdown/markdown/parser"
)

// MarkdownToHTML takes md as markdown and returns html. Raw HTML in
// the input is dropped.
func MarkdownToHTML(md string) string {
	p := mdp.NewWithExtensions(mdp.CommonExtensions | mdp.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML,
	})
	return string(markdown.Render(doc, renderer))
}

func markdownHTML(md string) template.HTML {
	if md == "" {
		return ""
	}
	return template.HTML(MarkdownToHTML(md))
}
