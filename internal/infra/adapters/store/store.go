// store persists the site documents as indented JSON on an afero.Fs.
// Writes go to a temporary file renamed over the target so a failed
// run never leaves a truncated document behind.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/spf13/afero"
)

const (
	CatalogFile   = "movies.json"
	StreamingFile = "streaming_data.json"
	ManifestFile  = "poster_manifest.json"
	LockFile      = ".tsds.lock"
)

// ErrLocked is returned by Lock when another run holds the data
// directory.
var ErrLocked = errors.New("data directory is locked by another run")

type forStoring struct {
	fs        afero.Fs
	dataDir   string
	outputDir string
	lockFile  string
}

type Option func(*forStoring)

// WithLockFile enables Lock using an OS file lock at path. Without it
// Lock is a no-op, which is what an in-memory afero.Fs wants.
func WithLockFile(path string) Option {
	return func(s *forStoring) {
		s.lockFile = path
	}
}

func New(fs afero.Fs, dataDir, outputDir string, opts ...Option) ports.ForStoring {
	s := &forStoring{
		fs:        fs,
		dataDir:   dataDir,
		outputDir: outputDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *forStoring) catalogPath() string   { return filepath.Join(s.dataDir, CatalogFile) }
func (s *forStoring) streamingPath() string { return filepath.Join(s.dataDir, StreamingFile) }
func (s *forStoring) manifestPath() string  { return filepath.Join(s.outputDir, ManifestFile) }

func (s *forStoring) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	var catalog model.Catalog
	found, err := s.read(s.catalogPath(), &catalog)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", s.catalogPath(), ports.ErrNotFound)
	}
	logger.FromContext(ctx).Info("Loaded catalog", "file", s.catalogPath(), "episodes", len(catalog.Episodes))
	return &catalog, nil
}

func (s *forStoring) SaveCatalog(ctx context.Context, catalog *model.Catalog) error {
	return s.write(ctx, s.catalogPath(), catalog)
}

func (s *forStoring) LoadStreaming(ctx context.Context) (*model.StreamingData, error) {
	var data model.StreamingData
	found, err := s.read(s.streamingPath(), &data)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.FromContext(ctx).Info("No existing streaming data found, will create new", "file", s.streamingPath())
	}
	return &data, nil
}

func (s *forStoring) SaveStreaming(ctx context.Context, data *model.StreamingData) error {
	return s.write(ctx, s.streamingPath(), data)
}

func (s *forStoring) LoadManifest(ctx context.Context) (model.PosterManifest, error) {
	manifest := make(model.PosterManifest)
	if _, err := s.read(s.manifestPath(), &manifest); err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = make(model.PosterManifest)
	}
	return manifest, nil
}

func (s *forStoring) SaveManifest(ctx context.Context, manifest model.PosterManifest) error {
	return s.write(ctx, s.manifestPath(), manifest)
}

func (s *forStoring) Lock(ctx context.Context) (func() error, error) {
	if s.lockFile == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.lockFile), 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(s.lockFile)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.lockFile, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", s.lockFile, ErrLocked)
	}
	logger.FromContext(ctx).Debug("Locked data directory", "lockFile", s.lockFile)
	return fl.Unlock, nil
}

// read decodes path into v. found is false if path does not exist.
func (s *forStoring) read(path string, v any) (found bool, err error) {
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return true, fmt.Errorf("malformed JSON in %s: %w", path, err)
	}
	return true, nil
}

func (s *forStoring) write(ctx context.Context, path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("unable to marshal %s: %w", path, err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("unable to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("unable to replace %s: %w", path, err)
	}
	logger.FromContext(ctx).Info("Saved", "file", path, "bytes", buf.Len())
	return nil
}
