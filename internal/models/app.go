package models

import (
	"time"
)

// Category classifies an app in the public catalog
type Category string

const (
	CategoryGames         Category = "Games"
	CategorySocial        Category = "Social"
	CategoryProductivity  Category = "Productivity"
	CategoryEntertainment Category = "Entertainment"
	CategoryEducation     Category = "Education"
	CategoryTools         Category = "Tools"
	CategoryCommunication Category = "Communication"
	CategoryPhotography   Category = "Photography"
	CategoryMusic         Category = "Music"
	CategoryOther         Category = "Other"
)

// Categories returns the fixed set of known categories in display order
func Categories() []Category {
	return []Category{
		CategoryGames,
		CategorySocial,
		CategoryProductivity,
		CategoryEntertainment,
		CategoryEducation,
		CategoryTools,
		CategoryCommunication,
		CategoryPhotography,
		CategoryMusic,
		CategoryOther,
	}
}

// IsValid returns true if the category is one of the known values
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory maps the empty category to Other
func NormalizeCategory(c Category) Category {
	if c == "" {
		return CategoryOther
	}
	return c
}

// Limits on list-valued app fields
const (
	MaxScreenshots = 10
	MaxTags        = 10
	MaxRating      = 5.0
)

// App represents a single catalog item: a downloadable application listing
type App struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	APKLink     string    `json:"apk_link"`
	WebsiteLink string    `json:"website_link,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Screenshots []string  `json:"screenshots,omitempty"`
	Category    Category  `json:"category"`
	Tags        []string  `json:"tags,omitempty"`
	Featured    bool      `json:"featured"`
	Downloads   int64     `json:"downloads"`
	Views       int64     `json:"views,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Version     string    `json:"version,omitempty"`
	Size        string    `json:"size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the app
func (a *App) Clone() *App {
	if a == nil {
		return nil
	}
	c := *a
	if a.Screenshots != nil {
		c.Screenshots = make([]string, len(a.Screenshots))
		copy(c.Screenshots, a.Screenshots)
	}
	if a.Tags != nil {
		c.Tags = make([]string, len(a.Tags))
		copy(c.Tags, a.Tags)
	}
	return &c
}

// AssetRefs returns all media URLs attached to the app (logo first).
// Used for best-effort asset cleanup when the app is deleted.
func (a *App) AssetRefs() []string {
	refs := make([]string, 0, len(a.Screenshots)+1)
	if a.LogoURL != "" {
		refs = append(refs, a.LogoURL)
	}
	refs = append(refs, a.Screenshots...)
	return refs
}

// HasScreenshots returns true if the app carries at least one screenshot
func (a *App) HasScreenshots() bool {
	return len(a.Screenshots) > 0
}

// Patch is a field-level partial update for an app.
// Nil fields are left unchanged; UpdatedAt is always advanced by the store.
type Patch struct {
	Title       *string
	Description *string
	APKLink     *string
	WebsiteLink *string
	LogoURL     *string
	Screenshots *[]string
	Category    *Category
	Tags        *[]string
	Featured    *bool
	Rating      *float64
	Version     *string
	Size        *string
}

// Apply overlays the patch onto a copy of the app and returns it
func (p *Patch) Apply(a *App) *App {
	out := a.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.APKLink != nil {
		out.APKLink = *p.APKLink
	}
	if p.WebsiteLink != nil {
		out.WebsiteLink = *p.WebsiteLink
	}
	if p.LogoURL != nil {
		out.LogoURL = *p.LogoURL
	}
	if p.Screenshots != nil {
		out.Screenshots = make([]string, len(*p.Screenshots))
		copy(out.Screenshots, *p.Screenshots)
	}
	if p.Category != nil {
		out.Category = NormalizeCategory(*p.Category)
	}
	if p.Tags != nil {
		out.Tags = make([]string, len(*p.Tags))
		copy(out.Tags, *p.Tags)
	}
	if p.Featured != nil {
		out.Featured = *p.Featured
	}
	if p.Rating != nil {
		out.Rating = *p.Rating
	}
	if p.Version != nil {
		out.Version = *p.Version
	}
	if p.Size != nil {
		out.Size = *p.Size
	}
	return out
}
