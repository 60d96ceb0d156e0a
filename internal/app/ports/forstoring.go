package ports

import (
	"context"

	"github.com/serialforbreakfast/tsds/internal/app/model"
)

// ForStoring persists the JSON documents of the site.
type ForStoring interface {
	// LoadCatalog fails if the catalog does not exist or is malformed.
	LoadCatalog(ctx context.Context) (*model.Catalog, error)
	SaveCatalog(ctx context.Context, catalog *model.Catalog) error
	// LoadStreaming returns an empty document if none exists yet, but
	// fails on malformed JSON.
	LoadStreaming(ctx context.Context) (*model.StreamingData, error)
	SaveStreaming(ctx context.Context, data *model.StreamingData) error
	// LoadManifest returns an empty manifest if none exists yet.
	LoadManifest(ctx context.Context) (model.PosterManifest, error)
	SaveManifest(ctx context.Context, manifest model.PosterManifest) error
	// Lock takes an exclusive lock on the data directory. The returned
	// function releases it.
	Lock(ctx context.Context) (unlock func() error, err error)
}
