package model

// PosterManifest is keyed by the TMDB id in decimal and persisted as
// output/poster_manifest.json.
type PosterManifest map[string]PosterEntry

type PosterEntry struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	// Posters maps size (w342, w500, ...) to a path relative to the
	// output directory.
	Posters   map[string]string `json:"posters"`
	CacheDate string            `json:"cache_date"`
}

// PosterMovie is one movie scheduled for poster caching.
type PosterMovie struct {
	TMDBID int
	Title  string
	Year   int
}
