package renderer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Services recognised by the service filter, matched as a substring of
// the lower-case source name in this order.
var services = []struct {
	Key, Label string
}{
	{"netflix", ""},
	{"amazon", ""},
	{"apple", "Apple TV"},
	{"google", "Google Play"},
	{"youtube", "YouTube"},
	{"tubi", ""},
	{"pluto", ""},
	{"hbo", "HBO Max"},
	{"hulu", ""},
}

var offerOrder = []model.OfferType{model.OfferSubscription, model.OfferFree, model.OfferRent, model.OfferBuy}

type page struct {
	PodcastName   string
	LastUpdated   string
	PoweredBy     string
	RepositoryURL string
	Stats         stats
	Episodes      []episodeView
	Movies        []movieView
	Services      []serviceView
}

type stats struct {
	Episodes         int
	Movies           int
	StreamingOptions int
}

type episodeView struct {
	Number      int
	Title       string
	AirDate     string
	Description string
	Movies      []movieView
}

type movieView struct {
	Title        string
	Year         int
	Notes        string
	Episode      int
	EpisodeTitle string
	Poster       string
	Groups       []sourceGroup
	DataSources  []string
	// Types and Services are space separated filter keys.
	Types    string
	Services string
	Search   string
}

type sourceGroup struct {
	Type    model.OfferType
	Sources []model.StreamingSource
}

type serviceView struct {
	Key, Label string
}

type movieKey struct {
	title string
	year  int
}

func (m movieView) HasSources() bool {
	return len(m.Groups) > 0
}

func newPage(site *ports.Site, posterSize string) page {
	title := cases.Title(language.English)
	p := page{
		PodcastName:   site.Config.PodcastName,
		RepositoryURL: site.Config.Repository.URL(),
		LastUpdated:   "Unknown",
	}
	streaming := site.Streaming
	if streaming == nil {
		streaming = &model.StreamingData{}
	}
	if streaming.Metadata.PodcastName != "" {
		p.PodcastName = streaming.Metadata.PodcastName
	}
	switch {
	case streaming.Metadata.LastUpdated != "":
		p.LastUpdated = streaming.Metadata.LastUpdated
	case site.Catalog != nil && site.Catalog.Metadata.LastUpdated != "":
		p.LastUpdated = site.Catalog.Metadata.LastUpdated
	}
	if len(streaming.Metadata.APIsUsed) > 0 {
		p.PoweredBy = title.String(strings.Join(streaming.Metadata.APIsUsed, ", "))
	}

	var episodes []model.Episode
	if site.Catalog != nil {
		episodes = site.Catalog.Episodes
	}
	seen := make(map[movieKey]bool)
	found := make(map[string]bool)
	for _, e := range episodes {
		ev := episodeView{
			Number:      e.EpisodeNumber,
			Title:       e.Title,
			AirDate:     e.AirDate,
			Description: e.Description,
		}
		for _, m := range e.Movies {
			mv := newMovieView(e, m, streaming.Record(e.EpisodeNumber, m.Title), site.Posters, posterSize)
			for _, g := range mv.Groups {
				p.Stats.StreamingOptions += len(g.Sources)
			}
			for _, s := range strings.Fields(mv.Services) {
				found[s] = true
			}
			ev.Movies = append(ev.Movies, mv)
			k := movieKey{strings.ToLower(m.Title), m.Year}
			if !seen[k] {
				seen[k] = true
				p.Movies = append(p.Movies, mv)
			}
			p.Stats.Movies++
		}
		p.Episodes = append(p.Episodes, ev)
	}
	p.Stats.Episodes = len(p.Episodes)

	sort.SliceStable(p.Episodes, func(i, j int) bool {
		return p.Episodes[i].Number > p.Episodes[j].Number
	})
	sort.SliceStable(p.Movies, func(i, j int) bool {
		return p.Movies[i].Episode > p.Movies[j].Episode
	})

	for _, s := range services {
		if !found[s.Key] {
			continue
		}
		label := s.Label
		if label == "" {
			label = title.String(s.Key)
		}
		p.Services = append(p.Services, serviceView{Key: s.Key, Label: label})
	}
	sort.Slice(p.Services, func(i, j int) bool {
		return p.Services[i].Key < p.Services[j].Key
	})
	return p
}

func newMovieView(e model.Episode, m model.Movie, rec *model.StreamingRecord, posters model.PosterManifest, posterSize string) movieView {
	mv := movieView{
		Title:        m.Title,
		Year:         m.Year,
		Notes:        m.Notes,
		Episode:      e.EpisodeNumber,
		EpisodeTitle: e.Title,
		Search:       strings.ToLower(m.Title + " " + e.Title),
	}
	// The streaming record is keyed by title, the year has to agree too.
	if rec == nil || rec.Year != m.Year {
		return mv
	}
	mv.DataSources = rec.DataSources
	if rec.TMDBID != 0 {
		if entry, ok := posters[strconv.Itoa(rec.TMDBID)]; ok {
			mv.Poster = entry.Posters[posterSize]
		}
	}

	types := make(map[string]bool)
	keys := make(map[string]bool)
	grouped := make(map[model.OfferType][]model.StreamingSource)
	var other []model.OfferType
	for _, s := range rec.StreamingSources {
		t := model.NormalizeOfferType(string(s.Type))
		s.Type = t
		if _, ok := grouped[t]; !ok && !known(t) {
			other = append(other, t)
		}
		grouped[t] = append(grouped[t], s)

		name := strings.ToLower(s.Name)
		switch t {
		case model.OfferRent, model.OfferBuy:
			types["rent"] = true
		default:
			types[string(t)] = true
		}
		if strings.Contains(name, "free") {
			types["free"] = true
		}
		for _, svc := range services {
			if strings.Contains(name, svc.Key) {
				keys[svc.Key] = true
				break
			}
		}
	}
	order := append(append([]model.OfferType{}, offerOrder...), other...)
	for _, t := range order {
		if len(grouped[t]) > 0 {
			mv.Groups = append(mv.Groups, sourceGroup{Type: t, Sources: grouped[t]})
		}
	}
	mv.Types = joinKeys(types)
	mv.Services = joinKeys(keys)
	return mv
}

func known(t model.OfferType) bool {
	for _, o := range offerOrder {
		if o == t {
			return true
		}
	}
	return false
}

func joinKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, " ")
}
