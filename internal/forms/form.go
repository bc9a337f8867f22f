package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appgrid/catalog-engine/internal/models"
)

// Submitter is the write path a form submits through. Satisfied by the
// catalog synchronizer; kept narrow so forms can be tested without it.
type Submitter interface {
	Create(ctx context.Context, draft *Draft) (*models.App, error)
	Update(ctx context.Context, id string, draft *Draft) error
}

// ErrNoSubmitter is returned when a form has no write path configured
var ErrNoSubmitter = errors.New("form has no submitter")

// Form stages a draft for a new item or an edit in progress and gates
// submission through the validation rules.
type Form struct {
	submitter Submitter
	owned     func(string) bool
	draft     Draft
	editingID string
}

// NewForm creates an empty form in create mode. owned identifies
// uploaded-asset references and may be nil.
func NewForm(submitter Submitter, owned func(string) bool) *Form {
	return &Form{submitter: submitter, owned: owned}
}

// Draft exposes the staged draft for direct field edits
func (f *Form) Draft() *Draft {
	return &f.draft
}

// Editing reports whether the form is in edit mode, and for which item
func (f *Form) Editing() (string, bool) {
	return f.editingID, f.editingID != ""
}

// BeginEdit loads an existing item into the draft and switches the form
// to edit mode
func (f *Form) BeginEdit(app *models.App) {
	f.editingID = app.ID
	f.draft = Draft{
		Title:       app.Title,
		Description: app.Description,
		APKLink:     app.APKLink,
		WebsiteLink: app.WebsiteLink,
		LogoURL:     app.LogoURL,
		Screenshots: append([]string(nil), app.Screenshots...),
		Category:    app.Category,
		Tags:        append([]string(nil), app.Tags...),
		Featured:    app.Featured,
		Rating:      app.Rating,
		Version:     app.Version,
		Size:        app.Size,
	}
}

// AddScreenshot stages a screenshot URL, enforcing the limit and the
// image-URL format at entry time
func (f *Form) AddScreenshot(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return invalid("screenshots", "screenshot URL is empty")
	}
	if len(f.draft.Screenshots) >= models.MaxScreenshots {
		return invalid("screenshots", fmt.Sprintf("maximum %d screenshots allowed", models.MaxScreenshots))
	}
	if !(f.owned != nil && f.owned(url)) && !isImageURL(url) {
		return invalid("screenshots", "please enter a valid image URL")
	}
	f.draft.Screenshots = append(f.draft.Screenshots, url)
	return nil
}

// RemoveScreenshot drops the screenshot at the given index
func (f *Form) RemoveScreenshot(index int) {
	if index < 0 || index >= len(f.draft.Screenshots) {
		return
	}
	f.draft.Screenshots = append(f.draft.Screenshots[:index], f.draft.Screenshots[index+1:]...)
}

// AddTag stages a tag. Duplicates are rejected, not silently ignored.
func (f *Form) AddTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return invalid("tags", "tag is empty")
	}
	if len(f.draft.Tags) >= models.MaxTags {
		return invalid("tags", fmt.Sprintf("maximum %d tags allowed", models.MaxTags))
	}
	for _, existing := range f.draft.Tags {
		if existing == tag {
			return invalid("tags", "tag already exists")
		}
	}
	f.draft.Tags = append(f.draft.Tags, tag)
	return nil
}

// RemoveTag drops the tag at the given index
func (f *Form) RemoveTag(index int) {
	if index < 0 || index >= len(f.draft.Tags) {
		return
	}
	f.draft.Tags = append(f.draft.Tags[:index], f.draft.Tags[index+1:]...)
}

// Reset clears the draft and leaves edit mode
func (f *Form) Reset() {
	f.draft = Draft{}
	f.editingID = ""
}

// Submit validates the draft and delegates to the write path: create in
// create mode, update in edit mode. On success the form resets to empty
// create mode; on failure the draft is left intact for correction.
func (f *Form) Submit(ctx context.Context) error {
	if f.submitter == nil {
		return ErrNoSubmitter
	}

	if err := f.draft.Validate(f.owned); err != nil {
		return err
	}

	if f.editingID != "" {
		if err := f.submitter.Update(ctx, f.editingID, &f.draft); err != nil {
			return err
		}
	} else {
		if _, err := f.submitter.Create(ctx, &f.draft); err != nil {
			return err
		}
	}

	f.Reset()
	return nil
}
