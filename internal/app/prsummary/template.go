package prsummary

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed pr_template.md.tmpl
var prTemplate string

var tmpl = template.Must(template.New("pr_template.md.tmpl").Parse(prTemplate))

// Template returns the long pull request template for links.
func Template(links Links) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, links); err != nil {
		return "", err
	}
	return b.String(), nil
}
