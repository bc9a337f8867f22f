package forms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appgrid/catalog-engine/internal/models"
)

// recordingSubmitter counts write-path calls
type recordingSubmitter struct {
	creates int
	updates int
	lastID  string
	fail    error
}

func (r *recordingSubmitter) Create(ctx context.Context, draft *Draft) (*models.App, error) {
	r.creates++
	if r.fail != nil {
		return nil, r.fail
	}
	app := draft.ToApp()
	app.ID = "new-id"
	return app, nil
}

func (r *recordingSubmitter) Update(ctx context.Context, id string, draft *Draft) error {
	r.updates++
	r.lastID = id
	return r.fail
}

func fillValid(f *Form) {
	d := f.Draft()
	d.Title = "Notes"
	d.Description = "Take notes fast"
	d.APKLink = "https://cdn.example.com/notes.apk"
}

func TestFormSubmitCreates(t *testing.T) {
	sub := &recordingSubmitter{}
	f := NewForm(sub, nil)
	fillValid(f)

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, 1, sub.creates)
	assert.Zero(t, sub.updates)

	// Success resets the form to empty create mode
	assert.Empty(t, f.Draft().Title)
	_, editing := f.Editing()
	assert.False(t, editing)
}

func TestFormSubmitInvalidNeverCallsSubmitter(t *testing.T) {
	sub := &recordingSubmitter{}
	f := NewForm(sub, nil)

	err := f.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, sub.creates)
	assert.Zero(t, sub.updates)
}

func TestFormSubmitFailureKeepsDraft(t *testing.T) {
	sub := &recordingSubmitter{fail: errors.New("backend unavailable")}
	f := NewForm(sub, nil)
	fillValid(f)

	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, "Notes", f.Draft().Title, "draft stays intact for re-submit")
}

func TestFormEditMode(t *testing.T) {
	sub := &recordingSubmitter{}
	f := NewForm(sub, nil)

	f.BeginEdit(&models.App{
		ID:          "app-7",
		Title:       "Old Title",
		Description: "Old description",
		APKLink:     "https://cdn.example.com/old.apk",
		Tags:        []string{"legacy"},
	})

	id, editing := f.Editing()
	require.True(t, editing)
	assert.Equal(t, "app-7", id)
	assert.Equal(t, "Old Title", f.Draft().Title)

	f.Draft().Title = "New Title"
	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, 1, sub.updates)
	assert.Zero(t, sub.creates)
	assert.Equal(t, "app-7", sub.lastID)

	_, editing = f.Editing()
	assert.False(t, editing, "successful submit leaves edit mode")
}

func TestFormBeginEditCopiesSlices(t *testing.T) {
	f := NewForm(&recordingSubmitter{}, nil)
	app := &models.App{ID: "a", Tags: []string{"one"}}

	f.BeginEdit(app)
	require.NoError(t, f.AddTag("two"))

	assert.Equal(t, []string{"one"}, app.Tags, "editing the form never mutates the source item")
}

func TestFormAddScreenshot(t *testing.T) {
	f := NewForm(&recordingSubmitter{}, nil)

	require.NoError(t, f.AddScreenshot("https://cdn.example.com/shot.png"))
	assert.Len(t, f.Draft().Screenshots, 1)

	err := f.AddScreenshot("https://cdn.example.com/shot.txt")
	require.Error(t, err)

	err = f.AddScreenshot("  ")
	require.Error(t, err)
}

func TestFormAddScreenshotLimit(t *testing.T) {
	f := NewForm(&recordingSubmitter{}, nil)
	for i := 0; i < models.MaxScreenshots; i++ {
		require.NoError(t, f.AddScreenshot("https://cdn.example.com/shot.png"))
	}

	err := f.AddScreenshot("https://cdn.example.com/extra.png")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "screenshots", verr.Field)
}

func TestFormAddScreenshotAcceptsOwnedAssets(t *testing.T) {
	owned := func(url string) bool { return url == "https://assets.example.com/k1" }
	f := NewForm(&recordingSubmitter{}, owned)

	require.NoError(t, f.AddScreenshot("https://assets.example.com/k1"))
}

func TestFormRemoveScreenshot(t *testing.T) {
	f := NewForm(&recordingSubmitter{}, nil)
	require.NoError(t, f.AddScreenshot("https://cdn.example.com/a.png"))
	require.NoError(t, f.AddScreenshot("https://cdn.example.com/b.png"))

	f.RemoveScreenshot(0)
	assert.Equal(t, []string{"https://cdn.example.com/b.png"}, f.Draft().Screenshots)

	// Out-of-range indexes are ignored
	f.RemoveScreenshot(5)
	f.RemoveScreenshot(-1)
	assert.Len(t, f.Draft().Screenshots, 1)
}

func TestFormAddTagRejectsDuplicates(t *testing.T) {
	f := NewForm(&recordingSubmitter{}, nil)

	require.NoError(t, f.AddTag("fast"))
	err := f.AddTag("fast")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tags", verr.Field)
	assert.Len(t, f.Draft().Tags, 1)
}

func TestFormNoSubmitter(t *testing.T) {
	f := NewForm(nil, nil)
	fillValid(f)

	assert.ErrorIs(t, f.Submit(context.Background()), ErrNoSubmitter)
}
