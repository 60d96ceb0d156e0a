package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a default logger from an empty context")
	}
	l := New(Options{Verbose: true})
	ctx := WithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Errorf("expected the stored logger back, got: %p want: %p", got, l)
	}
}

func TestNewWithFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "tsds.log")
	l := New(Options{File: file})
	l.Info("Poster cached", "tmdbID", 603)
	l.Debug("not written at info level")
	l.With("step", "posters").Info("Cache updated")

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	content := string(b)
	if !strings.Contains(content, "Poster cached") || !strings.Contains(content, "tmdbID=603") {
		t.Errorf("expected record in log file, got: %q", content)
	}
	if !strings.Contains(content, "step=posters") {
		t.Errorf("expected attributes from With in log file, got: %q", content)
	}
	if strings.Contains(content, "not written") {
		t.Errorf("expected debug record to be filtered, got: %q", content)
	}
}
