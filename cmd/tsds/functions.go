package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/app/refresh"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/store"
)

const (
	stateFresh   = "fresh"
	stateStale   = "stale"
	stateMissing = "missing"
)

// step is one stage of build. An optional step that fails with
// ports.ErrNoAPIKeys is skipped.
type step struct {
	name     string
	optional bool
	run      func() error
}

func runSteps(ctx context.Context, steps []step) error {
	l := logger.FromContext(ctx)
	for _, s := range steps {
		l.Debug("Build step", "step", s.name)
		err := s.run()
		switch {
		case err == nil:
		case s.optional && errors.Is(err, ports.ErrNoAPIKeys):
			l.Warn("Skipping "+s.name, "error", err)
		default:
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func lockPath(cfg *model.Config) string {
	return filepath.Join(cfg.DataDir, store.LockFile)
}

// prependEpisodes puts episodes in front of the catalog, newest
// extracted first. Duplicates are left for clean to remove.
func prependEpisodes(catalog *model.Catalog, episodes []model.Episode, now time.Time) {
	merged := make([]model.Episode, 0, len(episodes)+len(catalog.Episodes))
	merged = append(merged, episodes...)
	merged = append(merged, catalog.Episodes...)
	catalog.Episodes = merged
	catalog.Metadata.TotalEpisodes = len(merged)
	catalog.Metadata.LastUpdated = now.Format(model.DateFormat)
}

func firstN(episodes []model.Episode, n int) []model.Episode {
	if len(episodes) < n {
		return episodes
	}
	return episodes[:n]
}

// movieState tells whether the cached record of movie in episode is
// usable without refetching.
func movieState(data *model.StreamingData, episode int, movie model.Movie, now time.Time, window time.Duration) (string, *model.StreamingRecord) {
	rec := data.Record(episode, movie.Title)
	switch {
	case rec == nil:
		return stateMissing, nil
	case refresh.IsFresh(rec.LastUpdated, now, window):
		return stateFresh, rec
	default:
		return stateStale, rec
	}
}

// writeStatus renders one row per catalog movie with its cache state.
func writeStatus(w io.Writer, catalog *model.Catalog, data *model.StreamingData, now time.Time, window time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Episode", "Movie", "Year", "Sources", "Data sources", "Last updated", "State"})
	counts := make(map[string]int)
	for _, e := range catalog.Episodes {
		for _, m := range e.Movies {
			state, rec := movieState(data, e.EpisodeNumber, m, now, window)
			counts[state]++
			sources, dataSources, lastUpdated := 0, "", ""
			if rec != nil {
				sources = len(rec.StreamingSources)
				dataSources = strings.Join(rec.DataSources, ", ")
				lastUpdated = rec.LastUpdated
			}
			t.AppendRow(table.Row{e.EpisodeNumber, m.Title, m.Year, sources, dataSources, lastUpdated, state})
		}
	}
	t.AppendFooter(table.Row{"", "Total", catalog.MovieCount(), "", "",
		fmt.Sprintf("window %s", window),
		fmt.Sprintf("%d %s, %d %s, %d %s", counts[stateFresh], stateFresh, counts[stateStale], stateStale, counts[stateMissing], stateMissing)})
	t.Render()
}
