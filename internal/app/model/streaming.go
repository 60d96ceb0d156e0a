package model

import "strings"

// DateFormat is the layout of last_updated and air_date fields.
const DateFormat = "2006-01-02"

// TimestampFormat is the layout of metadata timestamps and poster
// cache dates.
const TimestampFormat = "2006-01-02 15:04:05"

// UnknownSourceName names a streaming source the provider left unnamed.
const UnknownSourceName = "Unknown"

type OfferType string

const (
	OfferFree         OfferType = "free"
	OfferSubscription OfferType = "subscription"
	OfferRent         OfferType = "rent"
	OfferBuy          OfferType = "buy"
)

// NormalizeOfferType maps the vocabularies used by the providers (sub,
// flatrate, tve, ads, ...) onto an OfferType. Unknown values are
// returned lower-cased as-is.
func NormalizeOfferType(s string) OfferType {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "sub", "subscription", "flatrate", "tve":
		return OfferSubscription
	case "free", "ads":
		return OfferFree
	case "rent":
		return OfferRent
	case "buy", "purchase":
		return OfferBuy
	default:
		return OfferType(v)
	}
}

type StreamingSource struct {
	Name    string    `json:"name"`
	Type    OfferType `json:"type"`
	Region  string    `json:"region"`
	WebURL  string    `json:"web_url"`
	LogoURL string    `json:"logo_url"`
}

// SourceKey identifies a source for de-duplication across providers.
type SourceKey struct {
	Name string
	Type OfferType
}

func (s StreamingSource) Key() SourceKey {
	return SourceKey{Name: s.Name, Type: s.Type}
}

// ExternalIDs are the ids discovered while querying providers, handed
// from one provider to the next.
type ExternalIDs struct {
	IMDBID      string
	TMDBID      int
	WatchmodeID int
}

// StreamingRecord is the cached lookup result for one movie.
// LastUpdated is kept as the raw string from disk, a value that does
// not parse is treated as stale rather than rejected.
type StreamingRecord struct {
	Title            string            `json:"title"`
	Year             int               `json:"year"`
	IMDBID           string            `json:"imdb_id"`
	StreamingSources []StreamingSource `json:"streaming_sources"`
	DataSources      []string          `json:"data_sources"`
	LastUpdated      string            `json:"last_updated"`
	TMDBID           int               `json:"tmdb_id,omitempty"`
	WatchmodeID      int               `json:"watchmode_id,omitempty"`
}

type StreamingEpisode struct {
	EpisodeNumber int               `json:"episode_number"`
	Movies        []StreamingRecord `json:"movies"`
}

// StreamingData is persisted as data/streaming_data.json.
type StreamingData struct {
	Episodes []StreamingEpisode `json:"episodes"`
	Metadata StreamingMetadata  `json:"metadata"`
}

type StreamingMetadata struct {
	PodcastName    string   `json:"podcast_name"`
	LastUpdated    string   `json:"last_updated"`
	TotalEpisodes  int      `json:"total_episodes"`
	APIsUsed       []string `json:"apis_used"`
	UpdateStrategy string   `json:"update_strategy"`
}

// Episode returns the streaming episode numbered n, or nil.
func (d *StreamingData) Episode(n int) *StreamingEpisode {
	for i := range d.Episodes {
		if d.Episodes[i].EpisodeNumber == n {
			return &d.Episodes[i]
		}
	}
	return nil
}

// Record returns the cached record for title in episode n, or nil.
func (d *StreamingData) Record(n int, title string) *StreamingRecord {
	e := d.Episode(n)
	if e == nil {
		return nil
	}
	for i := range e.Movies {
		if e.Movies[i].Title == title {
			return &e.Movies[i]
		}
	}
	return nil
}
