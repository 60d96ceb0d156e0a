package postercache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/spf13/afero"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

type fakeSource struct {
	details   map[int]*ports.MovieDetails
	body      []byte
	detailsN  int
	downloads map[string]int
}

func (f *fakeSource) MovieDetails(ctx context.Context, id int) (*ports.MovieDetails, error) {
	f.detailsN++
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return d, nil
}

func (f *fakeSource) Poster(ctx context.Context, size, posterPath string) ([]byte, error) {
	if f.downloads == nil {
		f.downloads = make(map[string]int)
	}
	f.downloads[size+posterPath]++
	return f.body, nil
}

var now = time.Date(2025, 6, 15, 20, 15, 0, 0, time.UTC)

func newSource() *fakeSource {
	return &fakeSource{
		details: map[int]*ports.MovieDetails{
			348: {ID: 348, Title: "Alien", Year: 1979, PosterPath: "/alien.jpg"},
			603: {ID: 603, Title: "The Matrix", Year: 1999, PosterPath: ""},
		},
		body: jpeg,
	}
}

func TestRunDoesNotRedownloadCachedFiles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	source := newSource()
	c := New(fs, "output", source, WithInterval(time.Millisecond), WithClock(func() time.Time { return now }))
	movies := []model.PosterMovie{{TMDBID: 348, Title: "Alien", Year: 1979}}
	manifest := make(model.PosterManifest)

	stats, err := c.Run(ctx, movies, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 3 {
		t.Errorf("expected 3 downloads, got: %+v", stats)
	}
	for _, size := range DefaultSizes {
		if ok, _ := afero.Exists(fs, filepath.Join("output", "posters", "348_"+size+".jpg")); !ok {
			t.Errorf("expected %s poster on disk", size)
		}
	}
	entry, ok := manifest["348"]
	if !ok {
		t.Fatalf("expected manifest entry, got: %+v", manifest)
	}
	if entry.Posters["w500"] != "posters/348_w500.jpg" || entry.CacheDate != "2025-06-15 20:15:00" || entry.Title != "Alien" {
		t.Errorf("unexpected manifest entry: %+v", entry)
	}

	stats, err = c.Run(ctx, movies, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 0 || stats.Reused != 3 {
		t.Errorf("expected everything reused on the second run, got: %+v", stats)
	}
	if source.detailsN != 1 {
		t.Errorf("expected details fetched once, got: %d", source.detailsN)
	}
	for k, n := range source.downloads {
		if n != 1 {
			t.Errorf("expected %s downloaded once, got: %d", k, n)
		}
	}
}

func TestRunOnlyFetchesMissingSizes(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, filepath.Join("output", "posters", "348_w342.jpg"), jpeg, 0o644)
	source := newSource()
	c := New(fs, "output", source, WithInterval(time.Millisecond))
	if _, err := c.Run(ctx, []model.PosterMovie{{TMDBID: 348, Title: "Alien", Year: 1979}}, make(model.PosterManifest)); err != nil {
		t.Fatal(err)
	}
	if source.downloads["w342/alien.jpg"] != 0 || source.downloads["w500/alien.jpg"] != 1 || source.downloads["w780/alien.jpg"] != 1 {
		t.Errorf("unexpected downloads: %v", source.downloads)
	}
}

func TestRunFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	source := newSource()
	c := New(fs, "output", source, WithInterval(time.Millisecond))
	movies := []model.PosterMovie{
		{TMDBID: 1, Title: "Unknown"},
		{TMDBID: 603, Title: "The Matrix", Year: 1999},
		{TMDBID: 348, Title: "Alien", Year: 1979},
	}
	manifest := make(model.PosterManifest)
	stats, err := c.Run(ctx, movies, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 2 || stats.Downloaded != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if _, ok := manifest["603"]; ok {
		t.Error("expected no manifest entry without posters")
	}
	if _, ok := manifest["348"]; !ok {
		t.Error("expected the run to continue past failures")
	}
}

func TestRunRejectsNonImages(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	source := newSource()
	source.body = []byte("<html><body>rate limited</body></html>")
	c := New(fs, "output", source, WithInterval(time.Millisecond))
	manifest := make(model.PosterManifest)
	stats, err := c.Run(ctx, []model.PosterMovie{{TMDBID: 348, Title: "Alien"}}, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 0 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("output", "posters", "348_w500.jpg")); ok {
		t.Error("expected html body not to be written as a poster")
	}
}

func TestCleanupOld(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	dir := filepath.Join("output", "posters")
	old := filepath.Join(dir, "1_w500.jpg")
	recent := filepath.Join(dir, "2_w500.jpg")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, recent, other} {
		afero.WriteFile(fs, p, jpeg, 0o644)
	}
	fs.Chtimes(old, now.Add(-31*24*time.Hour), now.Add(-31*24*time.Hour))
	fs.Chtimes(recent, now.Add(-29*24*time.Hour), now.Add(-29*24*time.Hour))
	fs.Chtimes(other, now.Add(-90*24*time.Hour), now.Add(-90*24*time.Hour))

	c := New(fs, "output", nil, WithClock(func() time.Time { return now }))
	removed, err := c.CleanupOld(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got: %d", removed)
	}
	if ok, _ := afero.Exists(fs, old); ok {
		t.Error("expected old poster removed")
	}
	for _, p := range []string{recent, other} {
		if ok, _ := afero.Exists(fs, p); !ok {
			t.Errorf("expected %s kept", p)
		}
	}

	manifest := model.PosterManifest{
		"1": {Title: "Gone", Posters: map[string]string{"w500": "posters/1_w500.jpg"}},
		"2": {Title: "Kept", Posters: map[string]string{"w500": "posters/2_w500.jpg"}},
	}
	c.prune(manifest)
	if _, ok := manifest["1"]; ok {
		t.Error("expected manifest entry of removed poster pruned")
	}
	if _, ok := manifest["2"]; !ok {
		t.Error("expected manifest entry of existing poster kept")
	}
}

func TestCleanupOldWithoutDirectory(t *testing.T) {
	c := New(afero.NewMemMapFs(), "output", nil)
	if removed, err := c.CleanupOld(context.Background()); err != nil || removed != 0 {
		t.Errorf("expected nothing to do, got: %d %v", removed, err)
	}
}

func TestCollectMovies(t *testing.T) {
	catalog := &model.Catalog{Episodes: []model.Episode{
		{EpisodeNumber: 1, Movies: []model.Movie{{Title: "Alien", Year: 1979}}},
		{EpisodeNumber: 2, Movies: []model.Movie{{Title: "ALIEN", Year: 1979}, {Title: "Unmatched", Year: 2020}}},
		{EpisodeNumber: 3, Movies: []model.Movie{{Title: "The Thing", Year: 1982}}},
	}}
	data := &model.StreamingData{Episodes: []model.StreamingEpisode{
		{EpisodeNumber: 1, Movies: []model.StreamingRecord{{Title: "Alien", Year: 1979, TMDBID: 348}}},
		{EpisodeNumber: 2, Movies: []model.StreamingRecord{{Title: "Alien", Year: 1979, TMDBID: 348}, {Title: "Unmatched", Year: 2020}}},
		{EpisodeNumber: 3, Movies: []model.StreamingRecord{{Title: "The Thing", Year: 1982, TMDBID: 1091}}},
	}}
	movies := CollectMovies(catalog, data)
	if len(movies) != 2 || movies[0].TMDBID != 348 || movies[1].TMDBID != 1091 {
		t.Errorf("unexpected movies: %+v", movies)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(348, "w500"); got != "348_w500.jpg" {
		t.Errorf("expected: %q\ngot: %q", "348_w500.jpg", got)
	}
	if got := RelPath(348, "w780"); got != "posters/348_w780.jpg" {
		t.Errorf("expected: %q\ngot: %q", "posters/348_w780.jpg", got)
	}
}
