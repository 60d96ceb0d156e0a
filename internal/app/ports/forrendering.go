package ports

import (
	"context"
	"io"

	"github.com/serialforbreakfast/tsds/internal/app/model"
)

// Site is everything a page is rendered from.
type Site struct {
	Config    *model.Config
	Catalog   *model.Catalog
	Streaming *model.StreamingData
	Posters   model.PosterManifest
}

// ForRendering should produce the static site page.
type ForRendering interface {
	WriteHTML(ctx context.Context, site *Site) (path string, err error)
	Render(ctx context.Context, w io.Writer, site *Site) error
}

// ForExtracting reads an episode list export into episodes.
type ForExtracting interface {
	Extract(ctx context.Context, r io.Reader) ([]model.Episode, error)
}
