package store

import (
	"context"
	"errors"
	"time"

	"github.com/appgrid/catalog-engine/internal/models"
)

// ErrNotFound is returned when the target record does not exist
var ErrNotFound = errors.New("record not found")

// Snapshot is the complete current contents of the catalog collection,
// ordered by creation time descending. Every delivery carries the full
// authoritative state, never a diff.
type Snapshot struct {
	Items []*models.App
	Taken time.Time
}

// RecordStore defines the remote document-collection contract for the
// catalog. Writes are eventually visible to all active subscriptions; no
// cross-document transactional guarantees are provided.
type RecordStore interface {
	// List returns all apps ordered by created_at descending
	List(ctx context.Context) ([]*models.App, error)

	// Get returns a single app, or ErrNotFound
	Get(ctx context.Context, id string) (*models.App, error)

	// Create persists a new app and returns its server-assigned id
	Create(ctx context.Context, app *models.App) (string, error)

	// Update applies a field-level patch to an existing app.
	// Returns ErrNotFound if the id does not exist.
	Update(ctx context.Context, id string, patch models.Patch) error

	// Delete removes an app. Returns ErrNotFound if the id does not exist.
	Delete(ctx context.Context, id string) error

	// IncrementDownloads atomically adds one to the download counter
	IncrementDownloads(ctx context.Context, id string) error

	// Subscribe opens a full-snapshot subscription. The returned channel
	// receives the complete collection after every visible change; the
	// release func closes the subscription and is safe to call twice.
	Subscribe(ctx context.Context) (<-chan Snapshot, func())

	// Ping checks store connectivity
	Ping(ctx context.Context) error

	Close() error
}
