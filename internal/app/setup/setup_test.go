package setup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/spf13/afero"
)

type fakeAsker struct {
	answer bool
	inputs []string
	asked  []string
}

func (a *fakeAsker) Ask(_ context.Context, format string, _ ...any) bool {
	a.asked = append(a.asked, format)
	return a.answer
}

func (a *fakeAsker) Input(_ context.Context, message, _ string, secret bool) (string, error) {
	if !secret {
		return "", errors.New("expected secret prompt for " + message)
	}
	if len(a.inputs) == 0 {
		return "", errors.New("no more input")
	}
	v := a.inputs[0]
	a.inputs = a.inputs[1:]
	return v, nil
}

type fakeConfigurator struct {
	secrets map[string]string
}

func (f *fakeConfigurator) Load(context.Context) (*model.Config, error) { return &model.Config{}, nil }

func (f *fakeConfigurator) Save(context.Context, *model.Config) error { return nil }

func (f *fakeConfigurator) SetSecret(_ context.Context, key, value string) error {
	f.secrets[key] = value
	return nil
}

func TestKeys(t *testing.T) {
	asker := &fakeAsker{inputs: []string{"0123456789abcdef0123456789", "wm-key"}}
	cfg := &fakeConfigurator{secrets: map[string]string{}}
	var validated []string
	w := &Wizard{
		Asker:        asker,
		Configurator: cfg,
		ValidateTMDB: func(_ context.Context, key string) error {
			validated = append(validated, key)
			return nil
		},
	}
	written, err := w.Keys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.Join(written, ","), "TMDB_API_KEY,WATCHMODE_API_KEY"; got != want {
		t.Errorf("written was incorrect, got: %s, want: %s", got, want)
	}
	if cfg.secrets[EnvWatchmodeAPIKey] != "wm-key" {
		t.Errorf("watchmode key was incorrect, got: %s, want: %s", cfg.secrets[EnvWatchmodeAPIKey], "wm-key")
	}
	if len(validated) != 1 {
		t.Errorf("expected one validation, got: %v", validated)
	}
	if len(asker.asked) != 0 {
		t.Errorf("expected no questions without current keys, got: %v", asker.asked)
	}
}

func TestKeysKeepsCurrentAndFailsValidation(t *testing.T) {
	asker := &fakeAsker{answer: false, inputs: []string{"short"}}
	cfg := &fakeConfigurator{secrets: map[string]string{}}
	w := &Wizard{
		Asker:        asker,
		Configurator: cfg,
		Current:      &model.Config{WatchmodeAPIKey: "existing-watchmode"},
		ValidateTMDB: func(context.Context, string) error {
			return errors.New("too short")
		},
	}
	_, err := w.Keys(context.Background())
	if err == nil || !strings.Contains(err.Error(), "TMDB_API_KEY") {
		t.Errorf("expected validation error naming the key, got: %v", err)
	}
	if len(cfg.secrets) != 0 {
		t.Errorf("expected nothing written, got: %v", cfg.secrets)
	}
}

func TestEnvironments(t *testing.T) {
	fs := afero.NewMemMapFs()
	asker := &fakeAsker{answer: false}
	w := &Wizard{Asker: asker}
	ctx := context.Background()

	written, err := w.Environments(ctx, fs, "repo")
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 2 {
		t.Fatalf("expected two files, got: %v", written)
	}
	b, err := afero.ReadFile(fs, "repo/.github/environments/staging.yml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "name: staging\n") {
		t.Errorf("unexpected staging.yml:\n%s", b)
	}

	// Existing files and a "no" answer leave them alone.
	if _, err := w.Environments(ctx, fs, "repo"); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got: %v", err)
	}
	asker.answer = true
	if _, err := w.Environments(ctx, fs, "repo"); err != nil {
		t.Errorf("expected overwrite, got: %v", err)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"0123456789abcdef", "01234567..."},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) was incorrect, got: %s, want: %s", tt.in, got, tt.want)
		}
	}
}
