package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/spf13/afero"
)

type fakeUploader struct {
	uploaded []string
	diffed   []string
}

func (f *fakeUploader) Upload(_ context.Context, r *ports.ForUploadingRequest) error {
	f.uploaded = append(f.uploaded, r.Store+"/"+r.To)
	return nil
}

func (f *fakeUploader) Diff(_ context.Context, w io.Writer, bucket, key, file string) error {
	f.diffed = append(f.diffed, key)
	_, err := fmt.Fprintf(w, "diff %s/%s %s\n", bucket, key, file)
	return err
}

type fakeAsker bool

func (a fakeAsker) Ask(context.Context, string, ...any) bool { return bool(a) }

func (a fakeAsker) Input(context.Context, string, string, bool) (string, error) {
	return "", errors.New("not a terminal")
}

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, name := range []string{"output/index.html", "output/poster_manifest.json", "output/posters/603_w342.jpg"} {
		if err := afero.WriteFile(fs, name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestRun(t *testing.T) {
	u := &fakeUploader{}
	p := &Publisher{
		Fs:        newFs(t),
		OutputDir: "output",
		Bucket:    "bucket",
		Prefix:    "site",
		Uploader:  u,
		Asker:     fakeAsker(true),
	}
	var buf bytes.Buffer
	n, err := p.Run(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("uploaded count was incorrect, got: %d, want: %d", n, 3)
	}
	expected := "bucket/site/index.html,bucket/site/poster_manifest.json,bucket/site/posters/603_w342.jpg"
	if got := strings.Join(u.uploaded, ","); got != expected {
		t.Errorf("expected: %q\ngot: %q", expected, got)
	}
	if got := buf.String(); !strings.HasPrefix(got, "diff bucket/site/index.html") {
		t.Errorf("unexpected diff output: %q", got)
	}
}

func TestRunDeclined(t *testing.T) {
	u := &fakeUploader{}
	p := &Publisher{Fs: newFs(t), OutputDir: "output", Bucket: "bucket", Uploader: u, Asker: fakeAsker(false)}
	n, err := p.Run(context.Background(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(u.uploaded) != 0 {
		t.Errorf("expected nothing uploaded, got: %v", u.uploaded)
	}
	if len(u.diffed) != 1 || u.diffed[0] != "index.html" {
		t.Errorf("expected diff of index.html, got: %v", u.diffed)
	}
}

func TestRunNoBucket(t *testing.T) {
	p := &Publisher{Fs: newFs(t), OutputDir: "output", Uploader: &fakeUploader{}, Asker: fakeAsker(true)}
	if _, err := p.Run(context.Background(), io.Discard); !errors.Is(err, ErrNoBucket) {
		t.Errorf("expected ErrNoBucket, got: %v", err)
	}
}
