package refresh

import (
	"context"
	"sort"
	"time"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
)

const UpdateStrategy = "incremental_with_caching"

// Refresher refreshes stale streaming records. Providers are queried in
// order, the first one is the primary.
type Refresher struct {
	Providers   []ports.ForStreaming
	Window      time.Duration
	Force       bool
	PodcastName string
	// Now defaults to time.Now.
	Now func() time.Time
}

// RefreshStats counts what one Run did.
type RefreshStats struct {
	Checked     int
	Refreshed   int
	Skipped     int
	WithSources int
}

func (r *Refresher) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Refresher) window() time.Duration {
	if r.Window <= 0 {
		return DefaultWindow
	}
	return r.Window
}

// Run walks every movie in catalog and replaces the record in data for
// each one that is not fresh. data is modified in place. The only error
// returned is a cancelled ctx, provider failures are logged and
// contribute nothing. A lookup interrupted by ctx is discarded so the
// cached record survives.
func (r *Refresher) Run(ctx context.Context, catalog *model.Catalog, data *model.StreamingData) (RefreshStats, error) {
	l := logger.FromContext(ctx)
	var stats RefreshStats
	now := r.now()
	err := r.walk(ctx, catalog, data, now, &stats)
	sort.SliceStable(data.Episodes, func(i, j int) bool {
		return data.Episodes[i].EpisodeNumber < data.Episodes[j].EpisodeNumber
	})
	if stats.Refreshed > 0 {
		data.Metadata = model.StreamingMetadata{
			PodcastName:    r.PodcastName,
			LastUpdated:    now.Format(model.DateFormat),
			TotalEpisodes:  len(data.Episodes),
			APIsUsed:       r.names(),
			UpdateStrategy: UpdateStrategy,
		}
	}
	if err != nil {
		l.Warn("Refresh interrupted", "checked", stats.Checked, "refreshed", stats.Refreshed, "error", err)
		return stats, err
	}
	l.Info("Refresh done", "checked", stats.Checked, "refreshed", stats.Refreshed, "skipped", stats.Skipped, "withSources", stats.WithSources)
	return stats, nil
}

func (r *Refresher) walk(ctx context.Context, catalog *model.Catalog, data *model.StreamingData, now time.Time, stats *RefreshStats) error {
	l := logger.FromContext(ctx)
	for _, episode := range catalog.Episodes {
		for _, movie := range episode.Movies {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Checked++
			existing := data.Record(episode.EpisodeNumber, movie.Title)
			if !r.Force && existing != nil && IsFresh(existing.LastUpdated, now, r.window()) {
				l.Debug("Streaming data is fresh, skipping", "episode", episode.EpisodeNumber, "title", movie.Title, "lastUpdated", existing.LastUpdated)
				stats.Skipped++
				continue
			}
			record := r.Lookup(ctx, movie, now)
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(record.StreamingSources) > 0 {
				stats.WithSources++
			}
			upsert(data, episode.EpisodeNumber, record)
			stats.Refreshed++
		}
	}
	return nil
}

// Lookup queries every provider for movie and returns a new record
// stamped with now.
func (r *Refresher) Lookup(ctx context.Context, movie model.Movie, now time.Time) model.StreamingRecord {
	l := logger.FromContext(ctx)
	ids := &model.ExternalIDs{IMDBID: movie.IMDBID}
	var sources []model.StreamingSource
	dataSources := []string{}
	for _, p := range r.Providers {
		found, err := p.Lookup(ctx, movie, ids)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			l.Warn("Provider lookup failed", "provider", p.Name(), "title", movie.Title, "year", movie.Year, "error", err)
			continue
		}
		if len(found) == 0 {
			continue
		}
		dataSources = append(dataSources, p.Name())
		sources = Merge(sources, found)
	}
	if len(sources) == 0 {
		l.Warn("No streaming data found", "title", movie.Title, "year", movie.Year)
		sources = []model.StreamingSource{}
	} else {
		l.Info("Found streaming data", "title", movie.Title, "year", movie.Year, "sources", len(sources), "dataSources", dataSources)
	}
	imdb := movie.IMDBID
	if imdb == "" {
		imdb = ids.IMDBID
	}
	return model.StreamingRecord{
		Title:            movie.Title,
		Year:             movie.Year,
		IMDBID:           imdb,
		StreamingSources: sources,
		DataSources:      dataSources,
		LastUpdated:      now.Format(model.DateFormat),
		TMDBID:           ids.TMDBID,
		WatchmodeID:      ids.WatchmodeID,
	}
}

func (r *Refresher) names() []string {
	names := make([]string, 0, len(r.Providers))
	for _, p := range r.Providers {
		names = append(names, p.Name())
	}
	return names
}

func upsert(data *model.StreamingData, episodeNumber int, record model.StreamingRecord) {
	if existing := data.Record(episodeNumber, record.Title); existing != nil {
		*existing = record
		return
	}
	if e := data.Episode(episodeNumber); e != nil {
		e.Movies = append(e.Movies, record)
		return
	}
	data.Episodes = append(data.Episodes, model.StreamingEpisode{
		EpisodeNumber: episodeNumber,
		Movies:        []model.StreamingRecord{record},
	})
}
