package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appgrid/catalog-engine/internal/models"
)

// MemoryStore implements RecordStore in memory. Used by tests and for
// local development without a database; it honors the same subscription
// contract as PostgresStore.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[string]*models.App
	bc   *broadcaster
}

// NewMemoryStore creates an empty in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps: make(map[string]*models.App),
		bc:   newBroadcaster(),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Subscribe opens a full-snapshot subscription seeded with the current state
func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	ch, release := s.bc.subscribe()

	s.bc.publish(s.snapshot())

	go func() {
		<-ctx.Done()
		release()
	}()

	return ch, release
}

func (s *MemoryStore) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*models.App, 0, len(s.apps))
	for _, app := range s.apps {
		items = append(items, app.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return Snapshot{Items: items, Taken: time.Now()}
}

func (s *MemoryStore) publish() {
	s.bc.publish(s.snapshot())
}

// List returns all apps ordered by created_at descending
func (s *MemoryStore) List(ctx context.Context) ([]*models.App, error) {
	return s.snapshot().Items, nil
}

// Get returns a single app, or ErrNotFound
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.App, error) {
	s.mu.RLock()
	app, ok := s.apps[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return app.Clone(), nil
}

// Create persists a new app and returns its server-assigned id
func (s *MemoryStore) Create(ctx context.Context, app *models.App) (string, error) {
	stored := app.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Category = models.NormalizeCategory(stored.Category)

	s.mu.Lock()
	s.apps[stored.ID] = stored
	s.mu.Unlock()

	s.publish()
	return stored.ID, nil
}

// Update applies a field-level patch to an existing app
func (s *MemoryStore) Update(ctx context.Context, id string, patch models.Patch) error {
	s.mu.Lock()
	app, ok := s.apps[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	updated := patch.Apply(app)
	updated.UpdatedAt = time.Now().UTC()
	s.apps[id] = updated
	s.mu.Unlock()

	s.publish()
	return nil
}

// Delete removes an app by ID
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.apps[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.apps, id)
	s.mu.Unlock()

	s.publish()
	return nil
}

// IncrementDownloads atomically adds one to the download counter
func (s *MemoryStore) IncrementDownloads(ctx context.Context, id string) error {
	s.mu.Lock()
	app, ok := s.apps[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	app.Downloads++
	s.mu.Unlock()

	s.publish()
	return nil
}
