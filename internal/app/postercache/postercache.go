// postercache keeps poster images on disk in several sizes, keyed by
// TMDB id, and maintains the manifest the renderer reads them from.
package postercache

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/serialforbreakfast/tsds/internal/app/humanreadable"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

const (
	// DirName is the poster directory below the output directory,
	// manifest paths are relative to the output directory.
	DirName         = "posters"
	DefaultMaxAge   = 30 * 24 * time.Hour
	DefaultInterval = 100 * time.Millisecond
)

var DefaultSizes = []string{"w342", "w500", "w780"}

type Cache struct {
	fs      afero.Fs
	dir     string
	sizes   []string
	maxAge  time.Duration
	source  ports.ForPosters
	limiter *rate.Limiter
	now     func() time.Time
}

type Option func(*Cache)

func WithSizes(sizes []string) Option {
	return func(c *Cache) {
		if len(sizes) > 0 {
			c.sizes = sizes
		}
	}
}

func WithMaxAge(maxAge time.Duration) Option {
	return func(c *Cache) {
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// WithInterval sets the pause between movies that need downloads.
func WithInterval(interval time.Duration) Option {
	return func(c *Cache) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a cache writing below outputDir/posters on fs. source may
// be nil, in which case only files already on disk are recorded.
func New(fs afero.Fs, outputDir string, source ports.ForPosters, opts ...Option) *Cache {
	c := &Cache{
		fs:      fs,
		dir:     filepath.Join(outputDir, DirName),
		sizes:   DefaultSizes,
		maxAge:  DefaultMaxAge,
		source:  source,
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Stats struct {
	Movies     int
	Downloaded int
	Reused     int
	Failed     int
}

// FileName returns the cache file name of a poster.
func FileName(tmdbID int, size string) string {
	return strconv.Itoa(tmdbID) + "_" + size + ".jpg"
}

// RelPath returns the manifest path of a poster.
func RelPath(tmdbID int, size string) string {
	return path.Join(DirName, FileName(tmdbID, size))
}

func (c *Cache) filePath(tmdbID int, size string) string {
	return filepath.Join(c.dir, FileName(tmdbID, size))
}

func (c *Cache) exists(tmdbID int, size string) bool {
	ok, err := afero.Exists(c.fs, c.filePath(tmdbID, size))
	return err == nil && ok
}

// CollectMovies returns the movies of catalog that have a TMDB id in
// data, keyed by (episode, lower-case title, year), first occurrence of
// each id wins.
func CollectMovies(catalog *model.Catalog, data *model.StreamingData) []model.PosterMovie {
	type key struct {
		episode int
		title   string
		year    int
	}
	ids := make(map[key]int)
	for _, e := range data.Episodes {
		for _, r := range e.Movies {
			if r.TMDBID != 0 {
				ids[key{e.EpisodeNumber, strings.ToLower(r.Title), r.Year}] = r.TMDBID
			}
		}
	}
	seen := make(map[int]bool)
	var movies []model.PosterMovie
	for _, e := range catalog.Episodes {
		for _, m := range e.Movies {
			id, ok := ids[key{e.EpisodeNumber, strings.ToLower(m.Title), m.Year}]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			movies = append(movies, model.PosterMovie{TMDBID: id, Title: m.Title, Year: m.Year})
		}
	}
	return movies
}

// CleanupOld removes cached posters last modified more than the max
// age ago and returns how many were removed.
func (c *Cache) CleanupOld(ctx context.Context) (int, error) {
	l := logger.FromContext(ctx)
	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if exists, _ := afero.DirExists(c.fs, c.dir); !exists {
			return 0, nil
		}
		return 0, err
	}
	cutoff := c.now().Add(-c.maxAge)
	removed := 0
	for _, fi := range infos {
		if fi.IsDir() || filepath.Ext(fi.Name()) != ".jpg" {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			if err := c.fs.Remove(filepath.Join(c.dir, fi.Name())); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if removed > 0 {
		l.Info("Cleaned up old poster files", "removed", removed, "maxAge", c.maxAge)
	}
	return removed, nil
}

// Run caches every size of every movie not already on disk and updates
// manifest in place. Network failures are logged and counted, they
// never abort the run.
func (c *Cache) Run(ctx context.Context, movies []model.PosterMovie, manifest model.PosterManifest) (Stats, error) {
	l := logger.FromContext(ctx)
	var stats Stats
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return stats, err
	}
	l.Info("Caching posters", "movies", len(movies), "sizes", c.sizes, "dir", c.dir)
	for i, movie := range movies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Movies++
		downloaded, err := c.cacheMovie(ctx, movie, &stats)
		if err != nil {
			l.Warn("Poster caching failed", "title", movie.Title, "tmdbID", movie.TMDBID, "error", err)
			stats.Failed++
		}
		c.record(manifest, movie, downloaded)
		if (i+1)%10 == 0 {
			l.Info("Progress", "processed", i+1, "of", len(movies))
		}
	}
	c.prune(manifest)
	l.Info("Poster caching complete", "movies", stats.Movies, "downloaded", stats.Downloaded, "reused", stats.Reused, "failed", stats.Failed)
	return stats, nil
}

func (c *Cache) cacheMovie(ctx context.Context, movie model.PosterMovie, stats *Stats) (downloaded bool, err error) {
	l := logger.FromContext(ctx)
	var missing []string
	for _, size := range c.sizes {
		if c.exists(movie.TMDBID, size) {
			stats.Reused++
			continue
		}
		missing = append(missing, size)
	}
	if len(missing) == 0 {
		l.Debug("Posters already cached", "title", movie.Title, "tmdbID", movie.TMDBID)
		return false, nil
	}
	if c.source == nil {
		return false, fmt.Errorf("%d poster size(s) missing and no poster source configured", len(missing))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	details, err := c.source.MovieDetails(ctx, movie.TMDBID)
	if err != nil {
		return false, err
	}
	if details.PosterPath == "" {
		return false, fmt.Errorf("no poster path for tmdb id %d", movie.TMDBID)
	}
	var failed error
	for _, size := range missing {
		b, err := c.source.Poster(ctx, size, details.PosterPath)
		if err != nil {
			failed = err
			continue
		}
		if mt := mimetype.Detect(b); !strings.HasPrefix(mt.String(), "image/") {
			failed = fmt.Errorf("%s poster for tmdb id %d is %s, not an image", size, movie.TMDBID, mt.String())
			continue
		}
		if err := afero.WriteFile(c.fs, c.filePath(movie.TMDBID, size), b, 0o644); err != nil {
			return downloaded, err
		}
		downloaded = true
		stats.Downloaded++
		l.Info("Cached poster", "title", movie.Title, "size", size, "bytes", humanreadable.IEC(int64(len(b))))
	}
	return downloaded, failed
}

// record writes the manifest entry of movie from what is on disk. The
// cache date only moves when something was downloaded.
func (c *Cache) record(manifest model.PosterManifest, movie model.PosterMovie, downloaded bool) {
	posters := make(map[string]string)
	for _, size := range c.sizes {
		if c.exists(movie.TMDBID, size) {
			posters[size] = RelPath(movie.TMDBID, size)
		}
	}
	key := strconv.Itoa(movie.TMDBID)
	if len(posters) == 0 {
		delete(manifest, key)
		return
	}
	entry, ok := manifest[key]
	if !ok || downloaded || entry.CacheDate == "" {
		entry.CacheDate = c.now().Format(model.TimestampFormat)
	}
	entry.Title = movie.Title
	entry.Year = movie.Year
	entry.Posters = posters
	manifest[key] = entry
}

// prune drops manifest paths whose file is gone, e.g after CleanupOld.
func (c *Cache) prune(manifest model.PosterManifest) {
	for key, entry := range manifest {
		for size, rel := range entry.Posters {
			p := filepath.Join(filepath.Dir(c.dir), filepath.FromSlash(rel))
			if ok, err := afero.Exists(c.fs, p); err != nil || !ok {
				delete(entry.Posters, size)
			}
		}
		if len(entry.Posters) == 0 {
			delete(manifest, key)
		}
	}
}
