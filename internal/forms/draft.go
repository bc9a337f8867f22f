package forms

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/appgrid/catalog-engine/internal/models"
)

// Draft stages a catalog item before submission. Field values are taken
// as entered; Validate applies the trimming and format rules.
type Draft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	APKLink     string          `json:"apk_link"`
	WebsiteLink string          `json:"website_link,omitempty"`
	LogoURL     string          `json:"logo_url,omitempty"`
	Screenshots []string        `json:"screenshots,omitempty"`
	Category    models.Category `json:"category,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Featured    bool            `json:"featured"`
	Rating      float64         `json:"rating,omitempty"`
	Version     string          `json:"version,omitempty"`
	Size        string          `json:"size,omitempty"`
}

// ValidationError reports the first rule a draft violates
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// isAbsoluteURL reports whether s parses as an absolute http(s) URL
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isImageURL reports whether s is an absolute URL ending in a recognized
// image extension (case-insensitive)
func isImageURL(s string) bool {
	if !isAbsoluteURL(s) {
		return false
	}
	lower := strings.ToLower(s)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Validate checks the draft against the submission rules, reporting the
// first violation. owned reports whether a URL references an uploaded
// asset; owned assets skip the image-extension check since the storage
// layer names them. A nil owned treats every URL as external.
func (d *Draft) Validate(owned func(string) bool) error {
	if owned == nil {
		owned = func(string) bool { return false }
	}

	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "title is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return invalid("description", "description is required")
	}
	if strings.TrimSpace(d.APKLink) == "" || !isAbsoluteURL(strings.TrimSpace(d.APKLink)) {
		return invalid("apk_link", "a valid APK download link is required")
	}
	if link := strings.TrimSpace(d.WebsiteLink); link != "" && !isAbsoluteURL(link) {
		return invalid("website_link", "website link must be a valid URL")
	}
	if logo := strings.TrimSpace(d.LogoURL); logo != "" && !owned(logo) && !isImageURL(logo) {
		return invalid("logo_url", "logo must be a valid image URL")
	}
	if len(d.Screenshots) > models.MaxScreenshots {
		return invalid("screenshots", fmt.Sprintf("maximum %d screenshots allowed", models.MaxScreenshots))
	}
	for _, shot := range d.Screenshots {
		if !owned(shot) && !isImageURL(shot) {
			return invalid("screenshots", "screenshot must be a valid image URL")
		}
	}
	if len(d.Tags) > models.MaxTags {
		return invalid("tags", fmt.Sprintf("maximum %d tags allowed", models.MaxTags))
	}
	seen := make(map[string]struct{}, len(d.Tags))
	for _, tag := range d.Tags {
		if _, dup := seen[tag]; dup {
			return invalid("tags", "tag already exists")
		}
		seen[tag] = struct{}{}
	}
	if d.Rating < 0 || d.Rating > models.MaxRating {
		return invalid("rating", fmt.Sprintf("rating must be between 0 and %g", models.MaxRating))
	}
	if d.Category != "" && !d.Category.IsValid() {
		return invalid("category", "unknown category")
	}

	return nil
}

// ToApp builds a new App from the draft. Identity, counters, and
// timestamps are left for the write path to assign.
func (d *Draft) ToApp() *models.App {
	return &models.App{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		APKLink:     strings.TrimSpace(d.APKLink),
		WebsiteLink: strings.TrimSpace(d.WebsiteLink),
		LogoURL:     strings.TrimSpace(d.LogoURL),
		Screenshots: append([]string(nil), d.Screenshots...),
		Category:    models.NormalizeCategory(d.Category),
		Tags:        append([]string(nil), d.Tags...),
		Featured:    d.Featured,
		Rating:      d.Rating,
		Version:     strings.TrimSpace(d.Version),
		Size:        strings.TrimSpace(d.Size),
	}
}

// ToPatch builds a full-overlay patch from the draft, covering every
// admin-editable field
func (d *Draft) ToPatch() models.Patch {
	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	apkLink := strings.TrimSpace(d.APKLink)
	websiteLink := strings.TrimSpace(d.WebsiteLink)
	logoURL := strings.TrimSpace(d.LogoURL)
	screenshots := append([]string(nil), d.Screenshots...)
	category := models.NormalizeCategory(d.Category)
	tags := append([]string(nil), d.Tags...)
	featured := d.Featured
	rating := d.Rating
	version := strings.TrimSpace(d.Version)
	size := strings.TrimSpace(d.Size)

	return models.Patch{
		Title:       &title,
		Description: &description,
		APKLink:     &apkLink,
		WebsiteLink: &websiteLink,
		LogoURL:     &logoURL,
		Screenshots: &screenshots,
		Category:    &category,
		Tags:        &tags,
		Featured:    &featured,
		Rating:      &rating,
		Version:     &version,
		Size:        &size,
	}
}
