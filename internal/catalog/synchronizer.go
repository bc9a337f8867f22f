package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/appgrid/catalog-engine/internal/assets"
	"github.com/appgrid/catalog-engine/internal/forms"
	"github.com/appgrid/catalog-engine/internal/models"
	"github.com/appgrid/catalog-engine/internal/store"
)

// ErrRemoteWrite marks any store write failure (create/update/delete/
// increment). Writes are never retried automatically; retry is a
// user-initiated re-submit.
var ErrRemoteWrite = errors.New("remote write failed")

type state int

const (
	stateIdle state = iota
	stateSubscribed
)

// Synchronizer maintains the authoritative in-memory mirror of the
// catalog collection, ordered by creation time descending. It is the
// sole consumer of the store's snapshot subscription and the sole owner
// of the in-memory list; every other component receives copies.
type Synchronizer struct {
	records store.RecordStore
	assets  assets.Store

	mu        sync.Mutex
	items     []*models.App
	st        state
	cancel    context.CancelFunc
	done      chan struct{}
	listeners map[chan []*models.App]struct{}
}

// New creates a synchronizer over the given record store. The asset
// store is used for best-effort cleanup on delete and may be nil.
func New(records store.RecordStore, assetStore assets.Store) *Synchronizer {
	return &Synchronizer{
		records:   records,
		assets:    assetStore,
		listeners: make(map[chan []*models.App]struct{}),
	}
}

// Start opens the subscription and begins mirroring snapshots. Calling
// Start while already subscribed is a no-op.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.st == stateSubscribed {
		s.mu.Unlock()
		return
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.st = stateSubscribed
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	ch, release := s.records.Subscribe(subCtx)

	go func() {
		defer close(done)
		defer release()
		for {
			select {
			case <-subCtx.Done():
				return
			case snap, ok := <-ch:
				if !ok {
					return
				}
				s.apply(snap)
			}
		}
	}()

	slog.Info("catalog synchronizer started")
}

// Stop releases the subscription. Idempotent: calling Stop twice (or
// before Start) produces no error and no further snapshot processing.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.st != stateSubscribed {
		s.mu.Unlock()
		return
	}
	s.st = stateIdle
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	slog.Info("catalog synchronizer stopped")
}

// apply replaces the whole in-memory list with the snapshot contents.
// Snapshots arriving after Stop are discarded. Listener sends stay under
// the lock: release removes a channel from the map before closing it, so
// no send can hit a closed channel. notifyListener never blocks.
func (s *Synchronizer) apply(snap store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st != stateSubscribed {
		return
	}
	s.items = snap.Items

	for ch := range s.listeners {
		notifyListener(ch, cloneItems(snap.Items))
	}
}

// Snapshot returns a copy of the current in-memory list, newest first
func (s *Synchronizer) Snapshot() []*models.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Get returns a copy of a single mirrored item
func (s *Synchronizer) Get(id string) (*models.App, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range s.items {
		if app.ID == id {
			return app.Clone(), true
		}
	}
	return nil, false
}

// Listen registers a downstream snapshot listener (the live feed). The
// channel is buffered and lagging listeners only ever miss superseded
// snapshots, never the latest. The release func is idempotent.
func (s *Synchronizer) Listen() (<-chan []*models.App, func()) {
	ch := make(chan []*models.App, 1)

	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	notifyListener(ch, cloneItems(s.items))
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, release
}

// Create validates the draft and writes a new record with downloads=0,
// rating=0, and createdAt=now; ratings accrue through edits, never at
// creation. There is no optimistic insert: the next snapshot reflects
// the real state.
func (s *Synchronizer) Create(ctx context.Context, draft *forms.Draft) (*models.App, error) {
	if err := draft.Validate(s.owned); err != nil {
		return nil, err
	}

	app := draft.ToApp()
	now := time.Now().UTC()
	app.Downloads = 0
	app.Rating = 0
	app.CreatedAt = now
	app.UpdatedAt = now

	id, err := s.records.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	app.ID = id
	slog.Info("catalog item created", "id", id, "title", app.Title)
	return app, nil
}

// Update validates the draft and writes it as a full field overlay for
// the given id. No optimistic patch; the next snapshot carries the
// updated item with updatedAt advanced.
func (s *Synchronizer) Update(ctx context.Context, id string, draft *forms.Draft) error {
	if err := draft.Validate(s.owned); err != nil {
		return err
	}

	if err := s.records.Update(ctx, id, draft.ToPatch()); err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	slog.Info("catalog item updated", "id", id)
	return nil
}

// Delete removes the record, then best-effort deletes its uploaded
// assets. Asset cleanup failures are logged and never block the delete:
// a non-deletable orphan item is worse than an orphaned asset.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	item, _ := s.Get(id)

	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}
	slog.Info("catalog item deleted", "id", id)

	if s.assets != nil && item != nil {
		for _, ref := range item.AssetRefs() {
			if !s.assets.Owns(ref) {
				continue
			}
			if err := s.assets.Delete(ctx, ref); err != nil {
				slog.Warn("failed to delete asset", "id", id, "url", ref, "error", err)
			}
		}
	}

	return nil
}

// Download is the one optimistic write path. The matching item's local
// counter is bumped and a clone carrying the new count is taken in the
// same critical section, so the returned link and count are always
// consistent. A failed remote increment is logged and not rolled back;
// the next full snapshot reconciles the counter exactly. Returns false
// if the id is not mirrored.
func (s *Synchronizer) Download(ctx context.Context, id string) (*models.App, bool) {
	s.mu.Lock()
	var app *models.App
	for _, it := range s.items {
		if it.ID == id {
			it.Downloads++
			app = it.Clone()
			break
		}
	}
	s.mu.Unlock()

	if app == nil {
		return nil, false
	}

	if err := s.records.IncrementDownloads(ctx, id); err != nil {
		slog.Warn("failed to record download", "id", id, "error", err)
	}

	return app, true
}

// Ping reports backing store connectivity
func (s *Synchronizer) Ping(ctx context.Context) error {
	return s.records.Ping(ctx)
}

// owned reports whether a URL references an uploaded asset
func (s *Synchronizer) owned(url string) bool {
	return s.assets != nil && s.assets.Owns(url)
}

func cloneItems(items []*models.App) []*models.App {
	out := make([]*models.App, len(items))
	for i, app := range items {
		out[i] = app.Clone()
	}
	return out
}

func notifyListener(ch chan []*models.App, items []*models.App) {
	select {
	case ch <- items:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- items:
		default:
		}
	}
}
