package refresh

import (
	"reflect"
	"testing"
	"time"

	"github.com/serialforbreakfast/tsds/internal/app/model"
)

func TestIsFresh(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)
	tables := []struct {
		lastUpdated string
		fresh       bool
	}{
		{"2025-06-15", true},
		{"2025-06-09", true},
		{"2025-06-08", false},
		{"2025-06-01", false},
		{"2025-06-20", true},
		{"", false},
		{"not a date", false},
		{"15/06/2025", false},
		{"2025-06-15 10:00:00", false},
	}
	for _, table := range tables {
		if got := IsFresh(table.lastUpdated, now, DefaultWindow); got != table.fresh {
			t.Errorf("IsFresh(%q) was incorrect, got: %v, want: %v", table.lastUpdated, got, table.fresh)
		}
	}
}

func TestIsFreshWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if IsFresh("2025-06-14", now, 24*time.Hour) {
		t.Error("expected a record exactly one window old to be stale")
	}
	if !IsFresh("2025-06-14", now, 48*time.Hour) {
		t.Error("expected a record inside a two day window to be fresh")
	}
}

func TestMerge(t *testing.T) {
	netflix := model.StreamingSource{Name: "Netflix", Type: model.OfferSubscription, Region: "US", WebURL: "https://netflix.example/primary"}
	netflixTMDB := model.StreamingSource{Name: "Netflix", Type: model.OfferSubscription, Region: "US", WebURL: "https://tmdb.example/watch"}
	tubi := model.StreamingSource{Name: "Tubi", Type: model.OfferFree, Region: "US"}
	netflixBuy := model.StreamingSource{Name: "Netflix", Type: model.OfferBuy, Region: "US"}

	tables := []struct {
		name      string
		primary   []model.StreamingSource
		secondary []model.StreamingSource
		expected  []model.StreamingSource
	}{
		{"duplicate dropped", []model.StreamingSource{netflix}, []model.StreamingSource{netflixTMDB, tubi}, []model.StreamingSource{netflix, tubi}},
		{"only secondary", nil, []model.StreamingSource{netflixTMDB, tubi}, []model.StreamingSource{netflixTMDB, tubi}},
		{"only primary", []model.StreamingSource{netflix}, nil, []model.StreamingSource{netflix}},
		{"type distinguishes", []model.StreamingSource{netflix}, []model.StreamingSource{netflixBuy}, []model.StreamingSource{netflix, netflixBuy}},
		{"secondary self duplicate", nil, []model.StreamingSource{tubi, tubi}, []model.StreamingSource{tubi}},
		{"nothing", nil, nil, nil},
	}
	for _, table := range tables {
		got := Merge(table.primary, table.secondary)
		if !reflect.DeepEqual(got, table.expected) {
			t.Errorf("%s: expected: %+v\ngot: %+v", table.name, table.expected, got)
		}
	}
}

func TestMergeKeepsPrimaryVersion(t *testing.T) {
	primary := []model.StreamingSource{{Name: "Netflix", Type: model.OfferSubscription, WebURL: "deep-link"}}
	secondary := []model.StreamingSource{{Name: "Netflix", Type: model.OfferSubscription, WebURL: "aggregate-page"}}
	got := Merge(primary, secondary)
	if len(got) != 1 || got[0].WebURL != "deep-link" {
		t.Errorf("expected primary web_url to win, got: %+v", got)
	}
}
