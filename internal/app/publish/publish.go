// publish uploads the rendered site tree to the object store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/serialforbreakfast/tsds/internal/app/humanreadable"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
	"github.com/spf13/afero"
)

var ErrNoBucket = errors.New("no bucket configured, set aws.bucket in the site configuration")

const IndexFile = "index.html"

// File is one local file and the key it is published under.
type File struct {
	Path string
	Key  string
	Size int64
}

type Publisher struct {
	Fs           afero.Fs
	OutputDir    string
	Bucket       string
	Prefix       string
	StorageClass string
	Uploader     ports.ForUploading
	Asker        ports.ForAsking
}

// Files lists every regular file under the output directory, sorted by
// key.
func (p *Publisher) Files() ([]File, error) {
	var files []File
	err := afero.Walk(p.Fs, p.OutputDir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(p.OutputDir, name)
		if err != nil {
			return err
		}
		files = append(files, File{
			Path: name,
			Key:  path.Join(p.Prefix, filepath.ToSlash(rel)),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Run shows the diff of the published index page against the local
// one on w, asks for confirmation and uploads every file. Returns the
// number of uploaded files.
func (p *Publisher) Run(ctx context.Context, w io.Writer) (int, error) {
	l := logger.FromContext(ctx)
	if p.Bucket == "" {
		return 0, ErrNoBucket
	}
	files, err := p.Files()
	if err != nil {
		return 0, fmt.Errorf("unable to list %s: %w", p.OutputDir, err)
	}
	if len(files) == 0 {
		l.Warn("Nothing to publish", "dir", p.OutputDir)
		return 0, nil
	}
	for _, f := range files {
		if f.Key == path.Join(p.Prefix, IndexFile) {
			if err := p.Uploader.Diff(ctx, w, p.Bucket, f.Key, f.Path); err != nil {
				return 0, err
			}
			break
		}
	}
	target := "s3://" + path.Join(p.Bucket, p.Prefix)
	if !p.Asker.Ask(ctx, "Upload %d files to %s?", len(files), target) {
		l.Info("Not publishing", "files", len(files), "to", target)
		return 0, nil
	}
	var total int64
	for i, f := range files {
		total += f.Size
		if err := p.Uploader.Upload(ctx, &ports.ForUploadingRequest{
			Store:        p.Bucket,
			To:           f.Key,
			From:         f.Path,
			StorageClass: p.StorageClass,
		}); err != nil {
			return i, err
		}
	}
	l.Info("Published", "files", len(files), "to", target, "size", humanreadable.SI(total))
	return len(files), nil
}
