package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appgrid/catalog-engine/internal/assets"
	"github.com/appgrid/catalog-engine/internal/forms"
	"github.com/appgrid/catalog-engine/internal/models"
	"github.com/appgrid/catalog-engine/internal/store"
)

// flakyStore wraps MemoryStore and fails writes on demand
type flakyStore struct {
	*store.MemoryStore
	failIncrement bool
	failCreate    bool
	increments    int
}

func (f *flakyStore) Create(ctx context.Context, app *models.App) (string, error) {
	if f.failCreate {
		return "", errors.New("backend unavailable")
	}
	return f.MemoryStore.Create(ctx, app)
}

func (f *flakyStore) IncrementDownloads(ctx context.Context, id string) error {
	f.increments++
	if f.failIncrement {
		return errors.New("backend unavailable")
	}
	return f.MemoryStore.IncrementDownloads(ctx, id)
}

func validDraft(title string) *forms.Draft {
	return &forms.Draft{
		Title:       title,
		Description: "A " + title + " app",
		APKLink:     "https://cdn.example.com/" + title + ".apk",
		Category:    models.CategoryTools,
	}
}

func startSynchronizer(t *testing.T, records store.RecordStore) *Synchronizer {
	t.Helper()

	s := New(records, assets.NewMemoryStore(""))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)
	t.Cleanup(s.Stop)
	return s
}

func waitForItems(t *testing.T, s *Synchronizer, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.Snapshot()) == n
	}, 2*time.Second, 10*time.Millisecond, "expected %d items in snapshot", n)
}

func TestSynchronizerCreateAppearsInSnapshot(t *testing.T) {
	s := startSynchronizer(t, store.NewMemoryStore())

	app, err := s.Create(context.Background(), validDraft("notes"))
	require.NoError(t, err)
	require.NotEmpty(t, app.ID)
	assert.Equal(t, int64(0), app.Downloads)
	assert.False(t, app.CreatedAt.IsZero())

	waitForItems(t, s, 1)

	got, ok := s.Get(app.ID)
	require.True(t, ok)
	assert.Equal(t, "notes", got.Title)
}

func TestSynchronizerCreateZeroesCounters(t *testing.T) {
	s := startSynchronizer(t, store.NewMemoryStore())

	draft := validDraft("rated")
	draft.Rating = 4.5
	app, err := s.Create(context.Background(), draft)
	require.NoError(t, err)

	// Counters and ratings accrue after creation, never from the draft
	assert.Zero(t, app.Downloads)
	assert.Zero(t, app.Rating)
}

func TestSynchronizerSnapshotOrderedNewestFirst(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	base := time.Now().UTC()
	for i, title := range []string{"oldest", "middle", "newest"} {
		_, err := records.Create(context.Background(), &models.App{
			Title:       title,
			Description: "x",
			APKLink:     "https://example.com/a.apk",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	waitForItems(t, s, 3)

	items := s.Snapshot()
	assert.Equal(t, "newest", items[0].Title)
	assert.Equal(t, "oldest", items[2].Title)
}

func TestSynchronizerCreateInvalidDraftNeverReachesStore(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	_, err := s.Create(context.Background(), &forms.Draft{Title: "   "})

	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	items, _ := records.List(context.Background())
	assert.Empty(t, items)
}

func TestSynchronizerCreateRemoteFailure(t *testing.T) {
	records := &flakyStore{MemoryStore: store.NewMemoryStore(), failCreate: true}
	s := startSynchronizer(t, records)

	_, err := s.Create(context.Background(), validDraft("doomed"))
	require.ErrorIs(t, err, ErrRemoteWrite)

	// Nothing was inserted optimistically
	assert.Empty(t, s.Snapshot())
}

func TestSynchronizerUpdateOverlaysFields(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	app, err := s.Create(context.Background(), validDraft("editor"))
	require.NoError(t, err)
	waitForItems(t, s, 1)

	draft := validDraft("editor pro")
	draft.Featured = true
	require.NoError(t, s.Update(context.Background(), app.ID, draft))

	require.Eventually(t, func() bool {
		got, ok := s.Get(app.ID)
		return ok && got.Title == "editor pro" && got.Featured
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := records.Get(context.Background(), app.ID)
	assert.True(t, got.UpdatedAt.After(app.UpdatedAt))
}

func TestSynchronizerUpdateUnknownID(t *testing.T) {
	s := startSynchronizer(t, store.NewMemoryStore())

	err := s.Update(context.Background(), "missing", validDraft("ghost"))
	require.ErrorIs(t, err, ErrRemoteWrite)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSynchronizerOptimisticDownload(t *testing.T) {
	records := &flakyStore{MemoryStore: store.NewMemoryStore(), failIncrement: true}
	s := startSynchronizer(t, records)

	created, err := s.Create(context.Background(), validDraft("counter"))
	require.NoError(t, err)
	waitForItems(t, s, 1)

	// The local count bumps even though every remote increment fails,
	// and the returned item carries the link and the count together
	app, ok := s.Download(context.Background(), created.ID)
	require.True(t, ok)
	assert.Equal(t, int64(1), app.Downloads)
	assert.Equal(t, created.APKLink, app.APKLink)

	app, ok = s.Download(context.Background(), created.ID)
	require.True(t, ok)
	assert.Equal(t, int64(2), app.Downloads)
	assert.Equal(t, 2, records.increments)

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Downloads)
}

func TestSynchronizerDownloadUnknownID(t *testing.T) {
	records := &flakyStore{MemoryStore: store.NewMemoryStore()}
	s := startSynchronizer(t, records)

	_, ok := s.Download(context.Background(), "missing")
	assert.False(t, ok)
	assert.Zero(t, records.increments, "unknown ids never reach the store")
}

func TestSynchronizerSnapshotSupersedesLocalCount(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	app, err := s.Create(context.Background(), validDraft("popular"))
	require.NoError(t, err)
	waitForItems(t, s, 1)

	_, ok := s.Download(context.Background(), app.ID)
	require.True(t, ok)

	// The next snapshot carries the store's authoritative count
	require.Eventually(t, func() bool {
		got, ok := s.Get(app.ID)
		return ok && got.Downloads == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSynchronizerDeleteRemovesItem(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	app, err := s.Create(context.Background(), validDraft("gone"))
	require.NoError(t, err)
	waitForItems(t, s, 1)

	require.NoError(t, s.Delete(context.Background(), app.ID))
	waitForItems(t, s, 0)

	_, err = records.Get(context.Background(), app.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSynchronizerDeleteCleansOwnedAssets(t *testing.T) {
	records := store.NewMemoryStore()
	assetStore := assets.NewMemoryStore("")
	s := New(records, assetStore)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	logoURL, err := assetStore.Upload(ctx, "logo.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	draft := validDraft("skinned")
	draft.LogoURL = logoURL
	app, err := s.Create(ctx, draft)
	require.NoError(t, err)
	waitForItems(t, s, 1)
	require.Equal(t, 1, assetStore.Len())

	require.NoError(t, s.Delete(ctx, app.ID))
	assert.Equal(t, 0, assetStore.Len())
}

// failingAssets refuses every delete but owns everything
type failingAssets struct {
	*assets.MemoryStore
}

func (f *failingAssets) Delete(ctx context.Context, url string) error {
	return errors.New("storage unavailable")
}

func TestSynchronizerDeleteSurvivesAssetCleanupFailure(t *testing.T) {
	records := store.NewMemoryStore()
	assetStore := &failingAssets{MemoryStore: assets.NewMemoryStore("")}
	s := New(records, assetStore)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	logoURL, err := assetStore.Upload(ctx, "logo.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	draft := validDraft("sticky")
	draft.LogoURL = logoURL
	app, err := s.Create(ctx, draft)
	require.NoError(t, err)
	waitForItems(t, s, 1)

	// The record delete still succeeds; the orphaned asset stays behind
	require.NoError(t, s.Delete(ctx, app.ID))
	_, err = records.Get(ctx, app.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, assetStore.Len())
}

func TestSynchronizerStopDiscardsLatePushes(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	app, err := s.Create(context.Background(), validDraft("frozen"))
	require.NoError(t, err)
	waitForItems(t, s, 1)

	s.Stop()

	// Writes after Stop never reach the mirror
	require.NoError(t, records.Delete(context.Background(), app.ID))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, s.Snapshot(), 1)
}

func TestSynchronizerStopIsIdempotent(t *testing.T) {
	s := New(store.NewMemoryStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Stop() // before Start is a no-op

	s.Start(ctx)
	s.Stop()
	s.Stop()
}

func TestSynchronizerRestart(t *testing.T) {
	records := store.NewMemoryStore()
	s := New(records, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	app, err := s.Create(context.Background(), validDraft("phoenix"))
	require.NoError(t, err)
	s.Stop()

	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, ok := s.Get(app.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSynchronizerListenerChurnDuringApplies(t *testing.T) {
	s := startSynchronizer(t, store.NewMemoryStore())

	items := []*models.App{{
		ID:        "a",
		Title:     "Churn",
		APKLink:   "https://cdn.example.com/churn.apk",
		CreatedAt: time.Now().UTC(),
	}}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.apply(store.Snapshot{Items: items, Taken: time.Now()})
			}
		}
	}()

	// Listeners that disconnect mid-apply must never be sent to after
	// their channel is closed
	for i := 0; i < 1000; i++ {
		_, release := s.Listen()
		release()
	}

	close(stop)
	wg.Wait()
}

func TestSynchronizerListenReceivesSnapshots(t *testing.T) {
	records := store.NewMemoryStore()
	s := startSynchronizer(t, records)

	ch, release := s.Listen()
	defer release()

	// Seeded with the current (empty) state
	select {
	case items := <-ch:
		assert.Empty(t, items)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot on listener")
	}

	_, err := s.Create(context.Background(), validDraft("live"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case items := <-ch:
			return len(items) == 1
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
