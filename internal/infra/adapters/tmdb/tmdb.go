// tmdb is the TMDB adapter. It is the secondary streaming provider
// (ports.ForStreaming), serves poster metadata and images
// (ports.ForPosters) and validates api keys for the setup wizard.
package tmdb

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
	Name             = "tmdb"
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultImageURL  = "https://image.tmdb.org/t/p"
	watchPageURL     = "https://www.themoviedb.org/movie/%d/watch"
	maxPosterBytes   = 10 << 20
	minAPIKeyLength  = 20
	originalLogoSize = "original"
)

// ErrShortAPIKey is returned by ValidateKey for keys that can not be
// TMDB keys.
var ErrShortAPIKey = errors.New("tmdb api key looks too short")

type searchResponse struct {
	Page    int            `json:"page"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}

type movieDetails struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
	IMDBID      string `json:"imdb_id"`
}

type provider struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

type regionProviders struct {
	Link     string     `json:"link"`
	Free     []provider `json:"free"`
	Flatrate []provider `json:"flatrate"`
	Rent     []provider `json:"rent"`
	Buy      []provider `json:"buy"`
}

type watchProvidersResponse struct {
	ID      int                        `json:"id"`
	Results map[string]regionProviders `json:"results"`
}

// Client talks to the TMDB v3 API.
type Client struct {
	apiKey   string
	baseURL  string
	imageURL string
	region   string
	client   *webclient.Client
	images   *webclient.Client
}

var (
	_ ports.ForStreaming = (*Client)(nil)
	_ ports.ForPosters   = (*Client)(nil)
)

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithImageURL(imageURL string) Option {
	return func(c *Client) {
		if imageURL != "" {
			c.imageURL = strings.TrimRight(imageURL, "/")
		}
	}
}

func WithRegion(region string) Option {
	return func(c *Client) {
		if region != "" {
			c.region = region
		}
	}
}

// WithImageClient sets the client used for poster downloads, usually
// one with a longer timeout sharing the api client's limiter.
func WithImageClient(images *webclient.Client) Option {
	return func(c *Client) {
		if images != nil {
			c.images = images
		}
	}
}

// New creates a TMDB client.
func New(apiKey string, client *webclient.Client, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	if client == nil {
		client = webclient.New(0, 0)
	}
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		imageURL: DefaultImageURL,
		region:   "US",
		client:   client,
		images:   client,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) endpoint(p string, params url.Values) (string, error) {
	u, err := url.JoinPath(c.baseURL, p)
	if err != nil {
		return "", fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	return u + "?" + params.Encode(), nil
}

// Lookup searches for the movie unless ids already carries a TMDB id
// (for example from Watchmode) and returns its watch providers.
func (c *Client) Lookup(ctx context.Context, movie model.Movie, ids *model.ExternalIDs) ([]model.StreamingSource, error) {
	l := logger.FromContext(ctx)
	if ids.TMDBID == 0 {
		match, err := c.SearchMovie(ctx, movie.Title, movie.Year)
		if err != nil {
			return nil, err
		}
		if match == nil {
			l.Warn("No results on TMDB", "title", movie.Title, "year", movie.Year)
			return nil, nil
		}
		l.Debug("Found movie on TMDB", "title", movie.Title, "year", movie.Year, "tmdbID", match.ID)
		ids.TMDBID = match.ID
	}
	return c.WatchProviders(ctx, ids.TMDBID)
}

// SearchMovie returns the first search result, nil if there is none.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*ports.MovieDetails, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	endpoint, err := c.endpoint("search/movie", params)
	if err != nil {
		return nil, err
	}
	var payload searchResponse
	if err := c.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("tmdb search %q: %w", title, err)
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}
	r := payload.Results[0]
	return &ports.MovieDetails{ID: r.ID, Title: r.Title, Year: releaseYear(r.ReleaseDate), PosterPath: r.PosterPath}, nil
}

// WatchProviders returns the offers for id in the configured region.
func (c *Client) WatchProviders(ctx context.Context, id int) ([]model.StreamingSource, error) {
	params := url.Values{}
	params.Set("watch_region", c.region)
	endpoint, err := c.endpoint("movie/"+strconv.Itoa(id)+"/watch/providers", params)
	if err != nil {
		return nil, err
	}
	var payload watchProvidersResponse
	if err := c.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("tmdb watch providers for %d: %w", id, err)
	}
	region, ok := payload.Results[c.region]
	if !ok {
		return []model.StreamingSource{}, nil
	}
	webURL := fmt.Sprintf(watchPageURL, id)
	var sources []model.StreamingSource
	for _, group := range []struct {
		offer     model.OfferType
		providers []provider
	}{
		{model.OfferFree, region.Free},
		{model.OfferSubscription, region.Flatrate},
		{model.OfferRent, region.Rent},
		{model.OfferBuy, region.Buy},
	} {
		for _, p := range group.providers {
			name := p.ProviderName
			if name == "" {
				name = model.UnknownSourceName
			}
			sources = append(sources, model.StreamingSource{
				Name:    name,
				Type:    group.offer,
				Region:  c.region,
				WebURL:  webURL,
				LogoURL: c.imageURL + "/" + originalLogoSize + p.LogoPath,
			})
		}
	}
	logger.FromContext(ctx).Debug("TMDB watch providers", "tmdbID", id, "sources", len(sources))
	return sources, nil
}

// MovieDetails implements ports.ForPosters.
func (c *Client) MovieDetails(ctx context.Context, id int) (*ports.MovieDetails, error) {
	endpoint, err := c.endpoint("movie/"+strconv.Itoa(id), nil)
	if err != nil {
		return nil, err
	}
	var payload movieDetails
	if err := c.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("tmdb movie %d: %w", id, err)
	}
	return &ports.MovieDetails{
		ID:         payload.ID,
		Title:      payload.Title,
		Year:       releaseYear(payload.ReleaseDate),
		PosterPath: payload.PosterPath,
	}, nil
}

// ImageURL returns the url of an image at size, e.g w500.
func (c *Client) ImageURL(size, path string) string {
	return c.imageURL + "/" + size + path
}

// Poster implements ports.ForPosters.
func (c *Client) Poster(ctx context.Context, size, posterPath string) ([]byte, error) {
	if posterPath == "" {
		return nil, errors.New("empty poster path")
	}
	b, err := c.images.GetBytes(ctx, c.ImageURL(size, posterPath), maxPosterBytes)
	if err != nil {
		return nil, fmt.Errorf("tmdb poster %s%s: %w", size, posterPath, err)
	}
	return b, nil
}

// Validate checks the api key against the configuration endpoint.
func (c *Client) Validate(ctx context.Context) error {
	if len(c.apiKey) < minAPIKeyLength {
		return ErrShortAPIKey
	}
	endpoint, err := c.endpoint("configuration", nil)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := c.client.GetJSON(ctx, endpoint, &payload); err != nil {
		return fmt.Errorf("tmdb api key rejected: %w", err)
	}
	return nil
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
