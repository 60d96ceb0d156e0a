package ports

import (
	"context"

	"github.com/serialforbreakfast/tsds/internal/app/model"
)

// ForStreaming is a streaming availability provider.
type ForStreaming interface {
	// Name is recorded in a record's data_sources when the provider
	// contributed to it.
	Name() string
	// Lookup returns the streaming sources for movie. ids carries the
	// external ids discovered by providers queried earlier in the same
	// refresh, the provider should use (and fill in) what it can. A nil
	// slice with a nil error means the provider has nothing for the
	// movie.
	Lookup(ctx context.Context, movie model.Movie, ids *model.ExternalIDs) ([]model.StreamingSource, error)
}

// MovieDetails is the subset of provider metadata the poster cache
// needs.
type MovieDetails struct {
	ID         int
	Title      string
	Year       int
	PosterPath string
}

// ForPosters fetches poster metadata and image bytes.
type ForPosters interface {
	MovieDetails(ctx context.Context, id int) (*MovieDetails, error)
	Poster(ctx context.Context, size, posterPath string) ([]byte, error)
}
