package model

// Catalog is the episode and movie list, persisted as
// data/movies.json.
type Catalog struct {
	Episodes []Episode       `json:"episodes"`
	Metadata CatalogMetadata `json:"metadata"`
}

type CatalogMetadata struct {
	LastUpdated   string `json:"last_updated,omitempty"`
	TotalEpisodes int    `json:"total_episodes"`
	Source        string `json:"source,omitempty"`
	SortOrder     string `json:"sort_order,omitempty"`
}

type Episode struct {
	EpisodeNumber int     `json:"episode_number"`
	Title         string  `json:"title"`
	AirDate       string  `json:"air_date"`
	Description   string  `json:"description"`
	Movies        []Movie `json:"movies"`
}

type Movie struct {
	Title            string `json:"title"`
	Year             int    `json:"year"`
	IMDBID           string `json:"imdb_id"`
	Notes            string `json:"notes,omitempty"`
	EpisodeReference int    `json:"episode_reference,omitempty"`
}

// MovieCount returns the number of movies across all episodes.
func (c *Catalog) MovieCount() int {
	n := 0
	for _, e := range c.Episodes {
		n += len(e.Movies)
	}
	return n
}
