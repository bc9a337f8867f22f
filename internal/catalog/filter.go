package catalog

import (
	"strings"

	"github.com/appgrid/catalog-engine/internal/models"
)

// Filter returns the ordered subsequence of items whose title or
// description contains term (case-insensitive substring match), further
// narrowed by the category facet when it is non-empty. An empty term
// matches everything; order is preserved and the input is never mutated.
func Filter(items []*models.App, term string, category models.Category) []*models.App {
	needle := strings.ToLower(strings.TrimSpace(term))

	out := make([]*models.App, 0, len(items))
	for _, app := range items {
		if category != "" && app.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(app.Title), needle) &&
			!strings.Contains(strings.ToLower(app.Description), needle) {
			continue
		}
		out = append(out, app)
	}
	return out
}
