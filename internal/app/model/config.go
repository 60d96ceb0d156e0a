package model

import (
	"strings"
	"time"
)

// Config is populated once at start-up by the configurator adapter
// from defaults, the optional site YAML file, the .env dotfile and the
// process environment (in increasing precedence).
type Config struct {
	PodcastName     string        `yaml:"podcastName"`
	Region          string        `yaml:"region"`
	DataDir         string        `yaml:"dataDir"`
	OutputDir       string        `yaml:"outputDir"`
	CacheWindow     time.Duration `yaml:"cacheWindow"`
	PosterMaxAge    time.Duration `yaml:"posterMaxAge"`
	PosterSizes     []string      `yaml:"posterSizes"`
	RequestInterval time.Duration `yaml:"requestInterval"`
	PosterInterval  time.Duration `yaml:"posterInterval"`
	HTTPTimeout     time.Duration `yaml:"httpTimeout"`
	PosterTimeout   time.Duration `yaml:"posterTimeout"`
	Layout          string        `yaml:"layout"`
	Repository      Repository    `yaml:"repository"`
	Aws             AwsConfig     `yaml:"aws"`
	LogFile         string        `yaml:"logFile,omitempty"`

	// Secrets are never read from or written to the YAML file.
	TMDBAPIKey      string `yaml:"-"`
	WatchmodeAPIKey string `yaml:"-"`
	PullRequest     string `yaml:"-"`
}

type Repository struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

func (r Repository) URL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name
}

// PagesURL is the GitHub Pages root of the repository.
func (r Repository) PagesURL() string {
	return "https://" + strings.ToLower(r.Owner) + ".github.io/" + r.Name
}

func (c *Config) HasAPIKeys() bool {
	return strings.TrimSpace(c.TMDBAPIKey) != "" || strings.TrimSpace(c.WatchmodeAPIKey) != ""
}

// APIsUsed lists the provider names with a configured key, in
// priority order.
func (c *Config) APIsUsed() []string {
	var apis []string
	if strings.TrimSpace(c.WatchmodeAPIKey) != "" {
		apis = append(apis, "watchmode")
	}
	if strings.TrimSpace(c.TMDBAPIKey) != "" {
		apis = append(apis, "tmdb")
	}
	return apis
}
