// watchmode implements ports.ForStreaming against the Watchmode API,
// the primary provider since it returns deep links to each service.
package watchmode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/webclient"
)

const (
	Name           = "watchmode"
	DefaultBaseURL = "https://api.watchmode.com/v1"
)

type searchResponse struct {
	TitleResults []searchResult `json:"title_results"`
}

type searchResult struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Year   int    `json:"year"`
	IMDBID string `json:"imdb_id"`
	TMDBID int    `json:"tmdb_id"`
}

type source struct {
	SourceID            int    `json:"source_id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Region              string `json:"region"`
	WebURL              string `json:"web_url"`
	IOSAppStoreURL      string `json:"ios_appstore_url"`
	AndroidPlayStoreURL string `json:"android_playstore_url"`
	Logo100px           string `json:"logo_100px"`
}

type forStreaming struct {
	apiKey  string
	baseURL string
	region  string
	client  *webclient.Client
}

type Option func(*forStreaming)

func WithBaseURL(baseURL string) Option {
	return func(p *forStreaming) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithRegion(region string) Option {
	return func(p *forStreaming) {
		if region != "" {
			p.region = region
		}
	}
}

// New returns the Watchmode provider. client paces and times out the
// requests.
func New(apiKey string, client *webclient.Client, opts ...Option) (ports.ForStreaming, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("watchmode api key required")
	}
	if client == nil {
		client = webclient.New(0, 0)
	}
	p := &forStreaming{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		region:  "US",
		client:  client,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *forStreaming) Name() string {
	return Name
}

func (p *forStreaming) Lookup(ctx context.Context, movie model.Movie, ids *model.ExternalIDs) ([]model.StreamingSource, error) {
	l := logger.FromContext(ctx)
	id := ids.WatchmodeID
	if id == 0 {
		match, err := p.search(ctx, movie.Title, movie.Year)
		if err != nil {
			return nil, err
		}
		if match == nil {
			l.Debug("No Watchmode match", "title", movie.Title, "year", movie.Year)
			return nil, nil
		}
		id = match.ID
		ids.WatchmodeID = match.ID
		if ids.TMDBID == 0 {
			ids.TMDBID = match.TMDBID
		}
		if ids.IMDBID == "" {
			ids.IMDBID = match.IMDBID
		}
	}
	return p.sources(ctx, id)
}

// search returns the first movie result whose year matches. A missing
// year on either side matches anything.
func (p *forStreaming) search(ctx context.Context, title string, year int) (*searchResult, error) {
	params := url.Values{}
	params.Set("apiKey", p.apiKey)
	params.Set("search_field", "name")
	params.Set("search_value", title)
	params.Set("types", "movie")
	endpoint := p.baseURL + "/search/?" + params.Encode()

	var payload searchResponse
	if err := p.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("watchmode search %q: %w", title, err)
	}
	for i, r := range payload.TitleResults {
		if year != 0 && r.Year != 0 && r.Year != year {
			continue
		}
		return &payload.TitleResults[i], nil
	}
	return nil, nil
}

func (p *forStreaming) sources(ctx context.Context, id int) ([]model.StreamingSource, error) {
	params := url.Values{}
	params.Set("apiKey", p.apiKey)
	params.Set("regions", p.region)
	endpoint := p.baseURL + "/title/" + strconv.Itoa(id) + "/sources/?" + params.Encode()

	var payload []source
	if err := p.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("watchmode sources for %d: %w", id, err)
	}
	sources := make([]model.StreamingSource, 0, len(payload))
	for _, s := range payload {
		region := s.Region
		if region == "" {
			region = p.region
		}
		sources = append(sources, model.StreamingSource{
			Name:    firstNonEmpty(s.Name, model.UnknownSourceName),
			Type:    model.NormalizeOfferType(s.Type),
			Region:  region,
			WebURL:  firstNonEmpty(s.WebURL, s.IOSAppStoreURL, s.AndroidPlayStoreURL),
			LogoURL: s.Logo100px,
		})
	}
	return sources, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
