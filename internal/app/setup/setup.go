// setup holds the interactive wizards writing API keys to the dotfile
// and the deployment environment files of the repository.
package setup

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/spf13/afero"
)

const (
	EnvTMDBAPIKey      = "TMDB_API_KEY"
	EnvWatchmodeAPIKey = "WATCHMODE_API_KEY"

	EnvironmentsDir = ".github/environments"
)

var ErrCancelled = errors.New("setup cancelled")

//go:embed environments/*.yml
var environments embed.FS

// KeyValidator checks an api key against its provider.
type KeyValidator func(ctx context.Context, key string) error

type Wizard struct {
	Asker        ports.ForAsking
	Configurator ports.ForConfiguring
	// Current is the loaded configuration, used to tell whether a key
	// is already set.
	Current      *model.Config
	ValidateTMDB KeyValidator
}

type key struct {
	name, label, help, current string
	validate                   KeyValidator
}

// Keys prompts for every api key, validates it and writes it to the
// dotfile. Returns the names of the keys written.
func (w *Wizard) Keys(ctx context.Context) ([]string, error) {
	l := logger.FromContext(ctx)
	current := w.Current
	if current == nil {
		current = &model.Config{}
	}
	keys := []key{
		{
			name:     EnvTMDBAPIKey,
			label:    "TMDB API key",
			help:     "Request a developer key at https://www.themoviedb.org/settings/api",
			current:  current.TMDBAPIKey,
			validate: w.ValidateTMDB,
		},
		{
			name:    EnvWatchmodeAPIKey,
			label:   "Watchmode API key",
			help:    "Create a free key at https://api.watchmode.com/requestApiKey/",
			current: current.WatchmodeAPIKey,
		},
	}
	var written []string
	for _, k := range keys {
		if k.current != "" && !w.Asker.Ask(ctx, "%s is already configured (%s), update it?", k.name, Mask(k.current)) {
			continue
		}
		value, err := w.Asker.Input(ctx, "Enter your "+k.label+":", k.help, true)
		if err != nil {
			return written, err
		}
		if value == "" {
			l.Warn("No key provided, skipping", "key", k.name)
			continue
		}
		if k.validate != nil {
			l.Info("Testing api key", "key", k.name)
			if err := k.validate(ctx, value); err != nil {
				return written, fmt.Errorf("%s: %w", k.name, err)
			}
			l.Info("API key is valid", "key", k.name)
		}
		if err := w.Configurator.SetSecret(ctx, k.name, value); err != nil {
			return written, err
		}
		written = append(written, k.name)
	}
	return written, nil
}

// Environments writes the staging and production environment files
// below dir, asking before replacing existing ones. Returns the paths
// written.
func (w *Wizard) Environments(ctx context.Context, fs afero.Fs, dir string) ([]string, error) {
	l := logger.FromContext(ctx)
	entries, err := environments.ReadDir("environments")
	if err != nil {
		return nil, err
	}
	target := filepath.Join(dir, filepath.FromSlash(EnvironmentsDir))
	var existing []string
	for _, e := range entries {
		p := filepath.Join(target, e.Name())
		if _, err := fs.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if len(existing) > 0 && !w.Asker.Ask(ctx, "Environment files already exist (%s), recreate them?", strings.Join(existing, ", ")) {
		return nil, ErrCancelled
	}
	if err := fs.MkdirAll(target, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, e := range entries {
		b, err := environments.ReadFile(path.Join("environments", e.Name()))
		if err != nil {
			return written, err
		}
		p := filepath.Join(target, e.Name())
		if err := afero.WriteFile(fs, p, b, 0o644); err != nil {
			return written, err
		}
		l.Info("Wrote environment file", "file", p)
		written = append(written, p)
	}
	return written, nil
}

// Mask shows the first characters of a secret only.
func Mask(secret string) string {
	const visible = 8
	if len(secret) <= visible {
		return strings.Repeat("*", len(secret))
	}
	return secret[:visible] + "..."
}
