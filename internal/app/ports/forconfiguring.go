package ports

import (
	"context"
	"errors"

	"github.com/serialforbreakfast/tsds/internal/app/model"
)

// ErrNoAPIKeys is returned when an operation needing a streaming
// provider finds neither TMDB_API_KEY nor WATCHMODE_API_KEY.
var ErrNoAPIKeys error = errors.New("no api keys configured, set TMDB_API_KEY and/or WATCHMODE_API_KEY")

type ForConfiguring interface {
	// Load builds the configuration once from defaults, the site YAML
	// file, the dotfile and the environment.
	Load(ctx context.Context) (*model.Config, error)
	// Save writes the non-secret part of cfg to the site YAML file.
	Save(ctx context.Context, cfg *model.Config) error
	// SetSecret creates or replaces the KEY=value line in the dotfile.
	SetSecret(ctx context.Context, key, value string) error
}
