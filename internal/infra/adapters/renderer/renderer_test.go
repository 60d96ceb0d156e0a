package renderer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/spf13/afero"
)

func testSite() *ports.Site {
	return &ports.Site{
		Config: &model.Config{
			PodcastName: "Scary Pod",
			Repository:  model.Repository{Owner: "SerialForBreakfast", Name: "TooScaryDidntStream"},
		},
		Catalog: &model.Catalog{
			Episodes: []model.Episode{
				{
					EpisodeNumber: 1,
					Title:         "The Matrix",
					AirDate:       "2024-01-01",
					Description:   "Episode discussing **The Matrix**",
					Movies:        []model.Movie{{Title: "The Matrix", Year: 1999}},
				},
				{
					EpisodeNumber: 2,
					Title:         "Vault Release <Obscure>",
					AirDate:       "2024-01-08",
					Movies: []model.Movie{
						{Title: "Obscure", Year: 1980},
						{Title: "The Matrix", Year: 1999},
					},
				},
			},
		},
		Streaming: &model.StreamingData{
			Episodes: []model.StreamingEpisode{
				{EpisodeNumber: 1, Movies: []model.StreamingRecord{{
					Title:  "The Matrix",
					Year:   1999,
					TMDBID: 603,
					StreamingSources: []model.StreamingSource{
						{Name: "Netflix", Type: "flatrate", Region: "US", WebURL: "https://netflix.example/603"},
						{Name: "Apple TV", Type: model.OfferRent, Region: "US"},
						{Name: "Tubi Free", Type: "ads", Region: "US"},
					},
					DataSources: []string{"watchmode", "tmdb"},
					LastUpdated: "2024-01-29",
				}}},
				{EpisodeNumber: 2, Movies: []model.StreamingRecord{{
					Title:            "Obscure",
					Year:             1980,
					StreamingSources: []model.StreamingSource{},
					LastUpdated:      "2024-01-29",
				}}},
			},
			Metadata: model.StreamingMetadata{
				LastUpdated: "2024-01-29",
				APIsUsed:    []string{"watchmode", "tmdb"},
			},
		},
		Posters: model.PosterManifest{
			"603": {Title: "The Matrix", Year: 1999, Posters: map[string]string{"w342": "posters/603_w342.jpg"}},
		},
	}
}

func render(t *testing.T, layout string) string {
	t.Helper()
	r, err := New(afero.NewMemMapFs(), "output", WithLayout(layout))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := r.Render(context.Background(), &buf, testSite()); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestRenderBrowser(t *testing.T) {
	out := render(t, LayoutBrowser)
	for _, want := range []string{
		`<title>Scary Pod - Movie Browser</title>`,
		`class="source subscription"`,
		`class="source rent"`,
		`class="source free"`,
		`href="https://netflix.example/603"`,
		`src="posters/603_w342.jpg"`,
		`data-services="apple netflix tubi"`,
		`data-types="free rent subscription"`,
		`data-service="netflix">Netflix</button>`,
		`data-service="apple">Apple TV</button>`,
		`No streaming sources found`,
		`Last updated: 2024-01-29`,
		`Streaming data powered by: Watchmode, Tmdb`,
		`href="https://github.com/SerialForBreakfast/TooScaryDidntStream"`,
		`Vault Release &lt;Obscure&gt;`,
		`id="total-movies">2<`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	// The Matrix appears in two episodes but gets a single card.
	if got := strings.Count(out, `data-title="The Matrix"`); got != 1 {
		t.Errorf("card count was incorrect, got: %d, want: %d", got, 1)
	}
	if strings.Contains(out, "<Obscure>") {
		t.Error("episode title was not escaped")
	}
}

func TestRenderEpisodes(t *testing.T) {
	out := render(t, LayoutEpisodes)
	for _, want := range []string{
		`<strong>The Matrix</strong>`,
		`<span class="stat-number">2</span><span class="stat-label">Episodes</span>`,
		`<span class="stat-number">3</span><span class="stat-label">Movies</span>`,
		`<span class="stat-number">3</span><span class="stat-label">Streaming Options</span>`,
		`Data from: watchmode, tmdb`,
		`No streaming sources found`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	// Newest episode first.
	if strings.Index(out, `id="episode-2"`) > strings.Index(out, `id="episode-1"`) {
		t.Error("episodes were not sorted newest first")
	}
}

func TestWriteHTML(t *testing.T) {
	fs := afero.NewMemMapFs()
	r, err := New(fs, "output")
	if err != nil {
		t.Fatal(err)
	}
	path, err := r.WriteHTML(context.Background(), testSite())
	if err != nil {
		t.Fatal(err)
	}
	if path != "output/index.html" {
		t.Errorf("path was incorrect, got: %s, want: %s", path, "output/index.html")
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("<!DOCTYPE html>")) {
		t.Errorf("unexpected start of page: %q", b[:20])
	}
}

func TestNewUnknownLayout(t *testing.T) {
	if _, err := New(afero.NewMemMapFs(), "output", WithLayout("carousel")); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func ExampleMarkdownToHTML() {
	fmt.Print(MarkdownToHTML("Episode discussing *Nosferatu*"))
	// Output:
	// <p>Episode discussing <em>Nosferatu</em></p>
}
