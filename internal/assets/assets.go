package assets

import (
	"context"
	"errors"
	"io"
)

// ErrNotOwned is returned when a delete is attempted on a URL that does
// not reference this store
var ErrNotOwned = errors.New("asset URL not owned by this store")

// Store is the remote blob-storage contract for uploaded logos and
// screenshots. Externally hosted image URLs bypass this collaborator
// entirely; Owns distinguishes the two.
type Store interface {
	// Upload stores the content and returns its retrievable URL
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)

	// Delete removes a previously uploaded asset by its URL
	Delete(ctx context.Context, url string) error

	// Owns reports whether the URL references an asset in this store
	Owns(url string) bool
}
