// uploader is the default AWS v1 upload handler publishing the site
// output to an S3 bucket.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/serialforbreakfast/tsds/internal/app/humanreadable"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
)

var (
	ErrNilPointerRequest error = errors.New("received nil pointer as request")
	ErrFilenameMissing   error = errors.New("empty or missing filename given")
)

// Content types forced by extension. Sniffing reports text/plain for
// JSON and is unreliable for minimal HTML.
var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".json": "application/json",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
}

type forUploading struct {
	session *session.Session
}

func New(cfg model.AwsConfig) ports.ForUploading {
	s := session.Must(session.NewSessionWithOptions(session.Options{
		Profile: cfg.Profile,
		Config: aws.Config{
			Region: aws.String(cfg.Region),
		},
	}))
	return &forUploading{
		session: s,
	}
}

// ContentType returns the Content-Type to publish filename with.
func ContentType(filename string) (string, error) {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct, nil
	}
	mimetype.SetLimit(1024 * 1024)
	mimeType, err := mimetype.DetectFile(filename)
	if err != nil {
		return "", err
	}
	return mimeType.String(), nil
}

// Upload r.From as key r.To to S3 bucket r.Store. If ContentType is
// empty in r, function will attempt to detect the content-type of the
// file in the r.From field.
func (u *forUploading) Upload(ctx context.Context, r *ports.ForUploadingRequest) error {
	l := logger.FromContext(ctx)
	if r == nil {
		return ErrNilPointerRequest
	}

	if strings.TrimSpace(r.From) == "" {
		return ErrFilenameMissing
	}

	if strings.TrimSpace(r.ContentType) == "" {
		var err error
		r.ContentType, err = ContentType(r.From)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(r.To) == "" {
		r.To = r.From
	}
	if r.StorageClass == "" {
		r.StorageClass = "STANDARD"
	}
	s3path := "s3://" + path.Join(r.Store, r.To)
	fi, err := os.Stat(r.From)
	if err != nil {
		return err
	}
	l.Info("Uploading to S3", "file", r.From, "to", s3path, "contentType", r.ContentType, "storageClass", r.StorageClass, "size", fi.Size(), "humanSize", humanreadable.IEC(fi.Size()))
	f, err := os.Open(r.From)
	if err != nil {
		return err
	}
	defer f.Close()
	uploader := s3manager.NewUploader(u.session)
	result, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(r.Store),
		Key:          aws.String(r.To),
		ContentType:  aws.String(r.ContentType),
		Body:         f,
		StorageClass: aws.String(r.StorageClass),
	})
	if err != nil {
		return fmt.Errorf("unable to upload %s: %w", s3path, err)
	}
	l.Debug("Upload succeeded", "location", result.Location)
	return nil
}

// Diff fileToDiff by downloading key from the bucket and writing a
// unified diff against the local content to w.
func (u *forUploading) Diff(ctx context.Context, w io.Writer, bucket, key, fileToDiff string) error {
	l := logger.FromContext(ctx)
	s3path := "s3://" + path.Join(bucket, key)

	fileContent, err := os.ReadFile(fileToDiff)
	if err != nil {
		return err
	}
	downloader := s3manager.NewDownloader(u.session)
	buf := aws.NewWriteAtBuffer([]byte{})
	size, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var awsErr awserr.Error
		if errors.As(err, &awsErr) {
			switch awsErr.Code() {
			case "NotFound", "NoSuchKey":
				l.Info("Skipping diff", "file", fileToDiff, "path", s3path, "error", err)
				return nil
			}
		}
		return err
	}
	l.Info("Buffered successfully", "path", s3path, "bytes", size, "humanSize", humanreadable.IEC(size))
	_, err = io.WriteString(w, UnifiedDiff(s3path, fileToDiff, string(buf.Bytes()), string(fileContent)))
	return err
}

// UnifiedDiff returns the unified diff between from and to, empty when
// they are equal.
func UnifiedDiff(fromName, toName, from, to string) string {
	if from == to {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(fromName), from, to)
	return fmt.Sprint(gotextdiff.ToUnified(fromName, toName, from, edits))
}
