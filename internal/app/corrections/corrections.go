// corrections holds the static title and year table of movies
// discussed on the show and the clean-up passes applied to the
// catalog: deriving a movie title from an episode title, fixing titles
// and years, and normalising ordering and numbering.
package corrections

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"gopkg.in/yaml.v3"
)

// UnknownYear is used when nothing better is known about a movie.
const UnknownYear = 2024

//go:embed titles.yaml
var titlesYAML []byte

type Title struct {
	Title string `yaml:"title"`
	Year  int    `yaml:"year"`
	// Match is an upper-case fragment of raw episode titles naming
	// this movie.
	Match string `yaml:"match,omitempty"`
}

type Table struct {
	titles  []Title
	byTitle map[string]Title
}

// Parse reads a YAML list of titles.
func Parse(b []byte) (*Table, error) {
	var titles []Title
	if err := yaml.Unmarshal(b, &titles); err != nil {
		return nil, fmt.Errorf("unable to parse titles: %w", err)
	}
	t := &Table{titles: titles, byTitle: make(map[string]Title, len(titles)*2)}
	for _, title := range titles {
		if strings.TrimSpace(title.Title) == "" {
			return nil, fmt.Errorf("title entry without title: %+v", title)
		}
		t.byTitle[title.Title] = title
		if _, ok := t.byTitle[strings.ToUpper(title.Title)]; !ok {
			t.byTitle[strings.ToUpper(title.Title)] = title
		}
	}
	return t, nil
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Parse(titlesYAML)
})

// Default returns the embedded table.
func Default() *Table {
	t, err := defaultTable()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Len() int {
	return len(t.titles)
}

// Lookup finds title exactly or by its upper-case form.
func (t *Table) Lookup(title string) (Title, bool) {
	if c, ok := t.byTitle[title]; ok {
		return c, true
	}
	c, ok := t.byTitle[strings.ToUpper(title)]
	return c, ok
}

// Match returns the entry whose Match fragment occurs as whole words in
// the upper-cased episodeTitle. The longest fragment wins.
func (t *Table) Match(episodeTitle string) (Title, bool) {
	upper := strings.ToUpper(episodeTitle)
	var best Title
	found := false
	for _, title := range t.titles {
		if title.Match == "" || len(title.Match) <= len(best.Match) {
			continue
		}
		if containsWord(upper, title.Match) {
			best = title
			found = true
		}
	}
	return best, found
}

func containsWord(s, word string) bool {
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var (
	reGuest          = regexp.MustCompile(`\s+with\s+[^()]+`)
	reParenthesised  = regexp.MustCompile(`\s*\([^)]*\)`)
	reBillingPrefix  = regexp.MustCompile(`^(LIVE!|Vault Release|Watch-Along)\s*`)
	reBillingSuffix  = regexp.MustCompile(`\s*(LIVE!|Vault Release|Watch-Along)\s*$`)
	reEpisodeBilling = regexp.MustCompile(`\s*\((LIVE!|Vault Release|Watch-Along)\)\s*`)
	reDiscussing     = regexp.MustCompile(`discussing\s+(.+)`)
	reSpaces         = regexp.MustCompile(`\s{2,}`)
)

// MovieFromEpisodeTitle derives the movie discussed in an episode from
// the episode title. Known movies come from the table with their year,
// anything else is the cleaned title with UnknownYear.
func (t *Table) MovieFromEpisodeTitle(episodeTitle string) (string, int) {
	if c, ok := t.Match(episodeTitle); ok {
		return c.Title, c.Year
	}
	title := reGuest.ReplaceAllString(episodeTitle, "")
	title = reParenthesised.ReplaceAllString(title, "")
	title = reBillingPrefix.ReplaceAllString(title, "")
	title = reBillingSuffix.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)
	if c, ok := t.Lookup(title); ok {
		return c.Title, c.Year
	}
	return title, UnknownYear
}

type Fix struct {
	Episode  int
	From     string
	To       string
	FromYear int
	ToYear   int
}

func (f Fix) String() string {
	return fmt.Sprintf("%s (%d) -> %s (%d)", f.From, f.FromYear, f.To, f.ToYear)
}

// Fix replaces the title and year of every movie found in the table
// and returns what changed.
func (t *Table) Fix(catalog *model.Catalog) []Fix {
	var fixes []Fix
	for i := range catalog.Episodes {
		e := &catalog.Episodes[i]
		for j := range e.Movies {
			m := &e.Movies[j]
			c, ok := t.Lookup(m.Title)
			if !ok || (c.Title == m.Title && c.Year == m.Year) {
				continue
			}
			fixes = append(fixes, Fix{Episode: e.EpisodeNumber, From: m.Title, To: c.Title, FromYear: m.Year, ToYear: c.Year})
			m.Title = c.Title
			m.Year = c.Year
		}
	}
	return fixes
}

// movieTitleMap normalises titles carrying a disambiguation suffix.
var movieTitleMap = map[string]string{
	"Speak No Evil (US Remake)": "Speak No Evil",
	"Halloween (2018)":          "Halloween",
	"Evil Dead (2013)":          "Evil Dead",
	"Inside (2007)":             "Inside",
}

type CleanStats struct {
	Before     int
	Duplicates int
	After      int
}

// Clean de-duplicates episodes, strips billing from titles, sorts from
// oldest to newest air date and renumbers from 1.
func Clean(catalog *model.Catalog, now time.Time) CleanStats {
	stats := CleanStats{Before: len(catalog.Episodes)}
	seen := make(map[string]bool)
	episodes := make([]model.Episode, 0, len(catalog.Episodes))
	for _, e := range catalog.Episodes {
		key := fmt.Sprintf("%d_%s", e.EpisodeNumber, e.Title)
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		e.Title = cleanEpisodeTitle(e.Title)
		e.Description = cleanDescription(e.Description)
		movies := make([]model.Movie, 0, len(e.Movies))
		for _, m := range e.Movies {
			m.Title = strings.TrimSpace(m.Title)
			if mapped, ok := movieTitleMap[m.Title]; ok {
				m.Title = mapped
			}
			if m.Year < 1900 || m.Year > 2030 {
				m.Year = UnknownYear
			}
			movies = append(movies, m)
		}
		e.Movies = movies
		episodes = append(episodes, e)
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		return airDate(episodes[i].AirDate).Before(airDate(episodes[j].AirDate))
	})
	for i := range episodes {
		n := i + 1
		episodes[i].EpisodeNumber = n
		for j := range episodes[i].Movies {
			episodes[i].Movies[j].Notes = fmt.Sprintf("Main movie discussed in Episode %d", n)
			episodes[i].Movies[j].EpisodeReference = n
		}
	}
	catalog.Episodes = episodes
	catalog.Metadata.TotalEpisodes = len(episodes)
	catalog.Metadata.LastUpdated = now.Format(model.DateFormat)
	catalog.Metadata.SortOrder = "oldest_to_newest"
	stats.After = len(episodes)
	return stats
}

func cleanEpisodeTitle(title string) string {
	title = reEpisodeBilling.ReplaceAllString(strings.TrimSpace(title), " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(title, " "))
}

func cleanDescription(description string) string {
	if strings.HasPrefix(description, "Episode discussing") {
		return description
	}
	if m := reDiscussing.FindStringSubmatch(description); m != nil {
		return "Episode discussing " + m[1]
	}
	return description
}

var fallbackAirDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func airDate(s string) time.Time {
	t, err := time.Parse(model.DateFormat, s)
	if err != nil {
		return fallbackAirDate
	}
	return t
}
