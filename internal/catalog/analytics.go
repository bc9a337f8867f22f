package catalog

import (
	"github.com/appgrid/catalog-engine/internal/models"
)

// Summary holds the admin dashboard analytics cards
type Summary struct {
	TotalApps       int                     `json:"total_apps"`
	TotalDownloads  int64                   `json:"total_downloads"`
	FeaturedApps    int                     `json:"featured_apps"`
	WithScreenshots int                     `json:"with_screenshots"`
	Categories      map[models.Category]int `json:"categories"`
}

// Summarize computes the analytics summary over a catalog snapshot
func Summarize(items []*models.App) Summary {
	s := Summary{
		TotalApps:  len(items),
		Categories: make(map[models.Category]int),
	}

	for _, app := range items {
		s.TotalDownloads += app.Downloads
		if app.Featured {
			s.FeaturedApps++
		}
		if app.HasScreenshots() {
			s.WithScreenshots++
		}
		s.Categories[models.NormalizeCategory(app.Category)]++
	}

	return s
}
