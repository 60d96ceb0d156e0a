package ports

import "context"

// ForVersioning reads the state of the working tree from version
// control.
type ForVersioning interface {
	// Status returns porcelain status lines.
	Status(ctx context.Context) ([]string, error)
	// Show returns the content of path at revision rev. Returns
	// ErrNotFound if path does not exist at rev.
	Show(ctx context.Context, rev, path string) (string, error)
}
