package webclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 603, "title": "The Matrix"}`))
	}))
	defer srv.Close()

	c := New(time.Second, time.Millisecond)
	var v struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := c.GetJSON(context.Background(), srv.URL+"/movie?api_key=secret", &v); err != nil {
		t.Fatal(err)
	}
	if v.ID != 603 || v.Title != "The Matrix" {
		t.Errorf("unexpected decode result: %+v", v)
	}

	err := c.GetJSON(context.Background(), srv.URL+"/missing?api_key=secret", &v)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got: %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got: %d", statusErr.StatusCode)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("expected api key redacted from error, got: %q", err.Error())
	}
}

func TestGetTransportErrorRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL + "/search?apiKey=secret"
	srv.Close()
	_, err := New(time.Second, time.Millisecond).Get(context.Background(), endpoint)
	if err == nil {
		t.Fatal("expected an error from a closed server")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("expected api key redacted from error, got: %q", err.Error())
	}
}

func TestPacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	interval := 40 * time.Millisecond
	c := New(time.Second, interval)
	shared := New(time.Second, time.Hour, WithLimiter(c.Limiter()))
	start := time.Now()
	var v map[string]any
	for _, client := range []*Client{c, shared, c} {
		if err := client.GetJSON(context.Background(), srv.URL, &v); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("expected three requests to take at least %v, took %v", 2*interval, elapsed)
	}
}

func TestRedact(t *testing.T) {
	tables := []struct {
		in, out string
	}{
		{"https://api.themoviedb.org/3/search/movie?api_key=x&query=Alien", "https://api.themoviedb.org/3/search/movie"},
		{"https://api.watchmode.com/v1/title/1/sources/", "https://api.watchmode.com/v1/title/1/sources/"},
	}
	for _, table := range tables {
		if got := Redact(table.in); got != table.out {
			t.Errorf("Redact(%q) was incorrect, got: %s, want: %s", table.in, got, table.out)
		}
	}
}
