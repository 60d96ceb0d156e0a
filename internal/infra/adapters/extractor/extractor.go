// extractor reads the episode list exported from the podcast app
// (forImporting/Episodes.html) into catalog episodes.
package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/serialforbreakfast/tsds/internal/app/corrections"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
)

const (
	// TitleSelector matches the episode title elements of the export.
	TitleSelector      = `[data-testid="episode-lockup-title"]`
	DefaultStartNumber = 240
	episodeInterval    = 7 * 24 * time.Hour
)

type forExtracting struct {
	start  int
	titles *corrections.Table
	now    func() time.Time
}

type Option func(*forExtracting)

// WithStartNumber sets the number of the newest (first) episode in the
// export, later episodes count down from it.
func WithStartNumber(n int) Option {
	return func(e *forExtracting) {
		if n > 0 {
			e.start = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *forExtracting) {
		if now != nil {
			e.now = now
		}
	}
}

func New(titles *corrections.Table, opts ...Option) ports.ForExtracting {
	if titles == nil {
		titles = corrections.Default()
	}
	e := &forExtracting{
		start:  DefaultStartNumber,
		titles: titles,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns one episode per title element in document order. The
// export carries no dates, air dates are estimated assuming one
// episode a week ending today.
func (e *forExtracting) Extract(ctx context.Context, r io.Reader) ([]model.Episode, error) {
	l := logger.FromContext(ctx)
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse episode export: %w", err)
	}
	now := e.now()
	var episodes []model.Episode
	doc.Find(TitleSelector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.Join(strings.Fields(sel.Text()), " ")
		if title == "" {
			return
		}
		number := e.start - len(episodes)
		movieTitle, year := e.titles.MovieFromEpisodeTitle(title)
		episodes = append(episodes, model.Episode{
			EpisodeNumber: number,
			Title:         title,
			AirDate:       now.Add(-time.Duration(e.start-number) * episodeInterval).Format(model.DateFormat),
			Description:   "Episode discussing " + movieTitle,
			Movies: []model.Movie{{
				Title: movieTitle,
				Year:  year,
				Notes: "Main movie discussed in episode",
			}},
		})
		l.Debug("Extracted episode", "number", number, "title", title, "movie", movieTitle, "year", year)
	})
	l.Info("Extracted episodes", "episodes", len(episodes))
	return episodes, nil
}
