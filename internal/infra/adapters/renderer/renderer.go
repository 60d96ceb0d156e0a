// renderer writes the static site page from the catalog, the cached
// streaming data and the poster manifest. It implements the
// ports.ForRendering interface.
package renderer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/serialforbreakfast/tsds/internal/app/humanreadable"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	LayoutBrowser  = "browser"
	LayoutEpisodes = "episodes"

	IndexFile         = "index.html"
	DefaultPosterSize = "w342"
)

//go:embed templates/*.tmpl
var templates embed.FS

type forRendering struct {
	fs         afero.Fs
	outputDir  string
	layout     string
	posterSize string
	tmpl       *template.Template
}

type Option func(*forRendering)

// WithLayout selects browser or episodes. An empty layout keeps the
// default.
func WithLayout(layout string) Option {
	return func(r *forRendering) {
		if layout != "" {
			r.layout = layout
		}
	}
}

// WithPosterSize selects the manifest size shown on movie cards.
func WithPosterSize(size string) Option {
	return func(r *forRendering) {
		if size != "" {
			r.posterSize = size
		}
	}
}

func New(fs afero.Fs, outputDir string, opts ...Option) (ports.ForRendering, error) {
	r := &forRendering{
		fs:         fs,
		outputDir:  outputDir,
		layout:     LayoutBrowser,
		posterSize: DefaultPosterSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	switch r.layout {
	case LayoutBrowser, LayoutEpisodes:
	default:
		return nil, fmt.Errorf("unknown layout %q", r.layout)
	}
	t, err := template.New("").Funcs(mkFuncMap()).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	r.tmpl = t
	return r, nil
}

func (r *forRendering) Render(ctx context.Context, w io.Writer, site *ports.Site) error {
	if site == nil || site.Config == nil {
		return fmt.Errorf("nothing to render")
	}
	p := newPage(site, r.posterSize)
	logger.FromContext(ctx).Debug("Rendering page", "layout", r.layout, "episodes", p.Stats.Episodes, "movies", len(p.Movies), "streamingOptions", p.Stats.StreamingOptions)
	return r.tmpl.ExecuteTemplate(w, r.layout+".html.tmpl", p)
}

// WriteHTML renders into a buffer first so that a template error never
// leaves a truncated index.html behind.
func (r *forRendering) WriteHTML(ctx context.Context, site *ports.Site) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(ctx, &buf, site); err != nil {
		return "", fmt.Errorf("unable to render %s: %w", IndexFile, err)
	}
	if err := r.fs.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.outputDir, IndexFile)
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	logger.FromContext(ctx).Info("Wrote page", "file", path, "layout", r.layout, "size", humanreadable.IEC(int64(buf.Len())))
	return path, nil
}

func mkFuncMap() template.FuncMap {
	title := cases.Title(language.English)
	return template.FuncMap{
		"markdown": markdownHTML,
		"title": func(s string) string {
			return title.String(s)
		},
		"join": strings.Join,
	}
}
