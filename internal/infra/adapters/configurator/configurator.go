// configurator builds the single model.Config of a run from built-in
// defaults, the optional site YAML file, the .env dotfile and the
// process environment, in increasing precedence. It also maintains the
// dotfile for the setup wizard. It implements the ports.ForConfiguring
// interface.
package configurator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSiteFile = "tsds.yaml"
	DefaultDotFile  = ".env"

	EnvTMDBAPIKey      = "TMDB_API_KEY"
	EnvWatchmodeAPIKey = "WATCHMODE_API_KEY"
	EnvPullRequest     = "GITHUB_EVENT_PULL_REQUEST_NUMBER"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *model.Config {
	return &model.Config{
		PodcastName:     "Too Scary; Didn't Watch",
		Region:          "US",
		DataDir:         "data",
		OutputDir:       "output",
		CacheWindow:     7 * 24 * time.Hour,
		PosterMaxAge:    30 * 24 * time.Hour,
		PosterSizes:     []string{"w342", "w500", "w780"},
		RequestInterval: 20 * time.Millisecond,
		PosterInterval:  100 * time.Millisecond,
		HTTPTimeout:     10 * time.Second,
		PosterTimeout:   15 * time.Second,
		Layout:          "browser",
		Repository: model.Repository{
			Owner: "SerialForBreakfast",
			Name:  "TooScaryDidntStream",
		},
		Aws: model.AwsConfig{
			Region: "us-east-1",
		},
	}
}

type forConfiguring struct {
	siteFile string
	// explicit is true when the site file was named by the user, then
	// it has to exist.
	explicit  bool
	dotFile   string
	lookupEnv func(string) (string, bool)
}

type Option func(*forConfiguring)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookupEnv func(string) (string, bool)) Option {
	return func(c *forConfiguring) {
		if lookupEnv != nil {
			c.lookupEnv = lookupEnv
		}
	}
}

// configurator.New returns a local file-based configurator that
// satisfies the ports.ForConfiguring port interface. Empty names select
// tsds.yaml and .env.
func New(siteFile, dotFile string, opts ...Option) ports.ForConfiguring {
	c := &forConfiguring{
		siteFile:  siteFile,
		explicit:  siteFile != "",
		dotFile:   dotFile,
		lookupEnv: os.LookupEnv,
	}
	if c.siteFile == "" {
		c.siteFile = DefaultSiteFile
	}
	if c.dotFile == "" {
		c.dotFile = DefaultDotFile
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *forConfiguring) Load(ctx context.Context) (*model.Config, error) {
	l := logger.FromContext(ctx)
	cfg := Defaults()
	f, err := os.Open(c.siteFile)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unable to parse %s: %w", c.siteFile, err)
		}
		l.Debug("Loaded site configuration", "file", c.siteFile)
	case errors.Is(err, os.ErrNotExist) && !c.explicit:
		l.Debug("No site configuration, using defaults", "file", c.siteFile)
	default:
		return nil, err
	}

	dot, err := ReadDotFile(c.dotFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", c.dotFile, err)
	}
	lookup := func(key string) string {
		if v, ok := c.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return dot[key]
	}
	cfg.TMDBAPIKey = lookup(EnvTMDBAPIKey)
	cfg.WatchmodeAPIKey = lookup(EnvWatchmodeAPIKey)
	cfg.PullRequest = lookup(EnvPullRequest)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", c.siteFile, err)
	}
	l.Debug("Configuration loaded", "tmdb", cfg.TMDBAPIKey != "", "watchmode", cfg.WatchmodeAPIKey != "", "dataDir", cfg.DataDir, "outputDir", cfg.OutputDir)
	return cfg, nil
}

func validate(cfg *model.Config) error {
	switch {
	case strings.TrimSpace(cfg.DataDir) == "":
		return errors.New("dataDir must not be empty")
	case strings.TrimSpace(cfg.OutputDir) == "":
		return errors.New("outputDir must not be empty")
	case cfg.CacheWindow < 0:
		return errors.New("cacheWindow must not be negative")
	case len(cfg.PosterSizes) == 0:
		return errors.New("posterSizes must not be empty")
	}
	switch cfg.Layout {
	case "browser", "episodes":
	default:
		return fmt.Errorf("unknown layout %q, use browser or episodes", cfg.Layout)
	}
	return nil
}

// Save writes cfg to the site file. Secrets are tagged yaml:"-" and
// never written.
func (c *forConfiguring) Save(ctx context.Context, cfg *model.Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("unable to marshall yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(c.siteFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("unable to write %s: %w", c.siteFile, err)
	}
	logger.FromContext(ctx).Info("Wrote site configuration", "file", c.siteFile)
	return nil
}

// SetSecret replaces the KEY= line of the dotfile, or appends one.
// Other lines, comments included, are kept as they are.
func (c *forConfiguring) SetSecret(ctx context.Context, key, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return errors.New("value must be a single line")
	}
	entry, err := godotenv.Marshal(map[string]string{key: value})
	if err != nil {
		return err
	}
	var lines []string
	b, err := os.ReadFile(c.dotFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	replaced := false
	if len(b) > 0 {
		for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
			if definesKey(line, key) {
				if !replaced {
					lines = append(lines, entry)
					replaced = true
				}
				continue
			}
			lines = append(lines, line)
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}
	if dir := filepath.Dir(c.dotFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(c.dotFile, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		return fmt.Errorf("unable to write %s: %w", c.dotFile, err)
	}
	logger.FromContext(ctx).Info("Updated dotfile", "file", c.dotFile, "key", key, "replaced", replaced)
	return nil
}

// definesKey reports whether line is an assignment of key. Lines
// that do not parse are never a match and are left alone.
func definesKey(line, key string) bool {
	values, err := godotenv.Unmarshal(line)
	if err != nil {
		return false
	}
	_, ok := values[key]
	return ok
}

// ReadDotFile parses a dotfile with godotenv. A missing file yields an
// empty map.
func ReadDotFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return values, nil
}
