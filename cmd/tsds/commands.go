package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/serialforbreakfast/tsds/internal/app/corrections"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/app/postercache"
	"github.com/serialforbreakfast/tsds/internal/app/prsummary"
	"github.com/serialforbreakfast/tsds/internal/app/publish"
	"github.com/serialforbreakfast/tsds/internal/app/refresh"
	"github.com/serialforbreakfast/tsds/internal/app/setup"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/asker"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/configurator"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/extractor"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/git"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/renderer"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/store"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/tmdb"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/uploader"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/watchmode"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/webclient"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

// runtime is what every command works with, loaded once per
// invocation by load.
type runtime struct {
	ctx          context.Context
	cfg          *model.Config
	configurator ports.ForConfiguring
	fs           afero.Fs
	store        ports.ForStoring
}

func load(c *cli.Context) (*runtime, error) {
	verbose := c.Bool("verbose")
	ctx := logger.WithLogger(c.Context, logger.New(logger.Options{Verbose: verbose}))
	siteFile := ""
	if c.IsSet("config") {
		siteFile = c.String("config")
	}
	conf := configurator.New(siteFile, c.String("env"))
	cfg, err := conf.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.LogFile != "" {
		ctx = logger.WithLogger(c.Context, logger.New(logger.Options{Verbose: verbose, File: cfg.LogFile}))
	}
	fs := afero.NewOsFs()
	return &runtime{
		ctx:          ctx,
		cfg:          cfg,
		configurator: conf,
		fs:           fs,
		store:        store.New(fs, cfg.DataDir, cfg.OutputDir, store.WithLockFile(lockPath(cfg))),
	}, nil
}

// locked runs fn holding the data directory lock.
func (r *runtime) locked(fn func() error) (err error) {
	unlock, err := r.store.Lock(r.ctx)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return fn()
}

func (r *runtime) apiClient() *webclient.Client {
	return webclient.New(r.cfg.HTTPTimeout, r.cfg.RequestInterval)
}

func (r *runtime) tmdbClient(api *webclient.Client) (*tmdb.Client, error) {
	images := webclient.New(r.cfg.PosterTimeout, 0, webclient.WithLimiter(api.Limiter()))
	return tmdb.New(r.cfg.TMDBAPIKey, api, tmdb.WithRegion(r.cfg.Region), tmdb.WithImageClient(images))
}

func extract(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	l := logger.FromContext(r.ctx)
	f, err := os.Open(c.String("input"))
	if err != nil {
		return fmt.Errorf("unable to open export: %w", err)
	}
	defer f.Close()
	episodes, err := extractor.New(corrections.Default(), extractor.WithStartNumber(c.Int("start"))).Extract(r.ctx, f)
	if err != nil {
		return err
	}
	return r.locked(func() error {
		catalog, err := r.store.LoadCatalog(r.ctx)
		if errors.Is(err, ports.ErrNotFound) {
			l.Info("No catalog yet, creating one")
			catalog, err = &model.Catalog{}, nil
		}
		if err != nil {
			return err
		}
		prependEpisodes(catalog, episodes, time.Now())
		if err := r.store.SaveCatalog(r.ctx, catalog); err != nil {
			return err
		}
		l.Info("Extracted episodes", "extracted", len(episodes), "total", len(catalog.Episodes))
		for _, e := range firstN(episodes, 5) {
			l.Info(fmt.Sprintf("Episode %d: %s", e.EpisodeNumber, e.Title), "movie", e.Movies[0].Title, "year", e.Movies[0].Year)
		}
		return nil
	})
}

func fix(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return r.locked(r.fix)
}

func (r *runtime) fix() error {
	l := logger.FromContext(r.ctx)
	catalog, err := r.store.LoadCatalog(r.ctx)
	if err != nil {
		return err
	}
	fixes := corrections.Default().Fix(catalog)
	for _, f := range fixes {
		l.Info("Fixed", "episode", f.Episode, "change", f.String())
	}
	if err := r.store.SaveCatalog(r.ctx, catalog); err != nil {
		return err
	}
	l.Info("Catalog corrected", "episodes", len(catalog.Episodes), "fixed", len(fixes))
	return nil
}

func clean(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return r.locked(r.clean)
}

func (r *runtime) clean() error {
	catalog, err := r.store.LoadCatalog(r.ctx)
	if err != nil {
		return err
	}
	stats := corrections.Clean(catalog, time.Now())
	if err := r.store.SaveCatalog(r.ctx, catalog); err != nil {
		return err
	}
	logger.FromContext(r.ctx).Info("Catalog cleaned and sorted", "before", stats.Before, "duplicates", stats.Duplicates, "after", stats.After)
	return nil
}

func fetch(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return r.locked(func() error {
		return r.fetch(c.Bool("force"))
	})
}

func (r *runtime) fetch(force bool) error {
	l := logger.FromContext(r.ctx)
	if !r.cfg.HasAPIKeys() {
		return fmt.Errorf("set %s and/or %s: %w", configurator.EnvWatchmodeAPIKey, configurator.EnvTMDBAPIKey, ports.ErrNoAPIKeys)
	}
	catalog, err := r.store.LoadCatalog(r.ctx)
	if err != nil {
		return err
	}
	data, err := r.store.LoadStreaming(r.ctx)
	if err != nil {
		return err
	}
	api := r.apiClient()
	var providers []ports.ForStreaming
	if r.cfg.WatchmodeAPIKey != "" {
		p, err := watchmode.New(r.cfg.WatchmodeAPIKey, api, watchmode.WithRegion(r.cfg.Region))
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	if r.cfg.TMDBAPIKey != "" {
		p, err := r.tmdbClient(api)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	refresher := &refresh.Refresher{
		Providers:   providers,
		Window:      r.cfg.CacheWindow,
		Force:       force,
		PodcastName: r.cfg.PodcastName,
	}
	stats, runErr := refresher.Run(r.ctx, catalog, data)
	// Keep what was fetched before an interrupt.
	if stats.Refreshed > 0 {
		if err := r.store.SaveStreaming(r.ctx, data); err != nil {
			return err
		}
	}
	l.Info("Streaming data updated", "checked", stats.Checked, "refreshed", stats.Refreshed, "skipped", stats.Skipped, "withSources", stats.WithSources)
	return runErr
}

func posters(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return r.posters()
}

func (r *runtime) posters() error {
	l := logger.FromContext(r.ctx)
	if r.cfg.TMDBAPIKey == "" {
		return fmt.Errorf("posters need %s: %w", configurator.EnvTMDBAPIKey, ports.ErrNoAPIKeys)
	}
	catalog, err := r.store.LoadCatalog(r.ctx)
	if err != nil {
		return err
	}
	data, err := r.store.LoadStreaming(r.ctx)
	if err != nil {
		return err
	}
	manifest, err := r.store.LoadManifest(r.ctx)
	if err != nil {
		return err
	}
	source, err := r.tmdbClient(r.apiClient())
	if err != nil {
		return err
	}
	cache := postercache.New(r.fs, r.cfg.OutputDir, source,
		postercache.WithSizes(r.cfg.PosterSizes),
		postercache.WithMaxAge(r.cfg.PosterMaxAge),
		postercache.WithInterval(r.cfg.PosterInterval))
	removed, err := cache.CleanupOld(r.ctx)
	if err != nil {
		return err
	}
	stats, runErr := cache.Run(r.ctx, postercache.CollectMovies(catalog, data), manifest)
	if err := r.store.SaveManifest(r.ctx, manifest); err != nil {
		return err
	}
	l.Info("Poster cache updated", "movies", stats.Movies, "downloaded", stats.Downloaded, "reused", stats.Reused, "failed", stats.Failed, "expired", removed)
	return runErr
}

func render(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return r.render(c.String("layout"))
}

func (r *runtime) render(layout string) error {
	if layout == "" {
		layout = r.cfg.Layout
	}
	catalog, err := r.store.LoadCatalog(r.ctx)
	if err != nil {
		return err
	}
	data, err := r.store.LoadStreaming(r.ctx)
	if err != nil {
		return err
	}
	manifest, err := r.store.LoadManifest(r.ctx)
	if err != nil {
		return err
	}
	rend, err := renderer.New(r.fs, r.cfg.OutputDir, renderer.WithLayout(layout), renderer.WithPosterSize(r.cfg.PosterSizes[0]))
	if err != nil {
		return err
	}
	_, err = rend.WriteHTML(r.ctx, &ports.Site{
		Config:    r.cfg,
		Catalog:   catalog,
		Streaming: data,
		Posters:   manifest,
	})
	return err
}

// build runs the whole pipeline. Without keys the cached data is
// rendered as is.
func build(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return runSteps(r.ctx, r.buildSteps(c.Bool("force"), c.String("layout")))
}

func (r *runtime) buildSteps(force bool, layout string) []step {
	return []step{
		{name: "fix", run: func() error { return r.locked(r.fix) }},
		{name: "clean", run: func() error { return r.locked(r.clean) }},
		{name: "fetch", optional: true, run: func() error {
			return r.locked(func() error { return r.fetch(force) })
		}},
		{name: "posters", optional: true, run: r.posters},
		{name: "render", run: func() error { return r.render(layout) }},
	}
}

func status(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	catalog, err := r.store.LoadCatalog(r.ctx)
	if err != nil {
		return err
	}
	data, err := r.store.LoadStreaming(r.ctx)
	if err != nil {
		return err
	}
	writeStatus(os.Stdout, catalog, data, time.Now(), r.cfg.CacheWindow)
	return nil
}

func publishSite(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	p := &publish.Publisher{
		Fs:           r.fs,
		OutputDir:    r.cfg.OutputDir,
		Bucket:       r.cfg.Aws.Bucket,
		Prefix:       r.cfg.Aws.Prefix,
		StorageClass: r.cfg.Aws.GetStorageClass(),
		Asker:        asker.New(c.Bool("dry-run"), c.Bool("force")),
	}
	if p.Bucket == "" {
		return publish.ErrNoBucket
	}
	p.Uploader = uploader.New(r.cfg.Aws)
	_, err = p.Run(r.ctx, os.Stdout)
	return err
}

func prSummary(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	links := prsummary.NewLinks(r.cfg.Repository, r.cfg.PullRequest)
	var out string
	if c.Bool("template") {
		out, err = prsummary.Template(links)
		if err != nil {
			return err
		}
	} else {
		g := &prsummary.Generator{
			Git:      git.New(""),
			Links:    links,
			ReadFile: os.ReadFile,
		}
		s, err := g.Collect(r.ctx)
		if err != nil {
			return err
		}
		out = s.Markdown()
	}
	return writeOutput(r.ctx, c.String("output"), out)
}

func writeOutput(ctx context.Context, file, content string) error {
	if file == "" {
		_, err := io.WriteString(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Summary saved", "file", file)
	return nil
}

func setupKeys(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	w := &setup.Wizard{
		Asker:        asker.New(false, false),
		Configurator: r.configurator,
		Current:      r.cfg,
		ValidateTMDB: func(ctx context.Context, key string) error {
			client, err := tmdb.New(key, r.apiClient())
			if err != nil {
				return err
			}
			return client.Validate(ctx)
		},
	}
	written, err := w.Keys(r.ctx)
	if err != nil {
		return err
	}
	logger.FromContext(r.ctx).Info("Setup complete", "keys", written, "dotfile", c.String("env"))
	return nil
}

func setupEnvironments(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	w := &setup.Wizard{Asker: asker.New(false, false)}
	_, err = w.Environments(r.ctx, r.fs, ".")
	if errors.Is(err, setup.ErrCancelled) {
		logger.FromContext(r.ctx).Info("Setup cancelled")
		return nil
	}
	return err
}

func setupConfig(c *cli.Context) error {
	r, err := load(c)
	if err != nil {
		return err
	}
	return r.configurator.Save(r.ctx, r.cfg)
}
