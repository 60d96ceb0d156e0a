package ports

import (
	"context"
	"errors"
	"io"
)

var (
	// ports.ErrNotFound is returned by adapters when a key, name or
	// file does not exist in the backend (object store, git revision).
	ErrNotFound error = errors.New("no such file or key")
)

type ForUploadingRequest struct {
	// Bucket or store to upload to.
	Store string
	// Key or name of target. If empty, default to the From field.
	To string
	// From is the local path to upload.
	From        string
	ContentType string
	// StorageClass only used for AWS. If empty, STANDARD is the
	// default.
	StorageClass string
}

type ForUploading interface {
	Upload(ctx context.Context, request *ForUploadingRequest) error
	// Diff writes a unified diff of the remote keyOrName against the
	// local fileToDiff to w. A missing remote object is not an error.
	Diff(ctx context.Context, w io.Writer, bucketOrStore, keyOrName, fileToDiff string) error
}
