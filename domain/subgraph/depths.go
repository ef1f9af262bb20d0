// Package subgraph holds the result shape of a structural query: the roots
// that matched, every vertex reached while resolving their dependencies, the
// edges between them and the depths the caller asked for.
package subgraph

import "fmt"

// MaxResolveDepth bounds every category when no tighter limit is configured.
const MaxResolveDepth = 255

// GraphResolveDepths is the per-category hop budget of a structural query.
// A depth of 0 stops expansion along that category.
type GraphResolveDepths struct {
	DataTypeResolveDepth         int `json:"dataTypeResolveDepth"`
	PropertyTypeResolveDepth     int `json:"propertyTypeResolveDepth"`
	LinkTypeResolveDepth         int `json:"linkTypeResolveDepth"`
	EntityTypeResolveDepth       int `json:"entityTypeResolveDepth"`
	LinkResolveDepth             int `json:"linkResolveDepth"`
	LinkTargetEntityResolveDepth int `json:"linkTargetEntityResolveDepth"`
}

// Validate rejects negative depths and depths above limit. A limit of zero
// or less means MaxResolveDepth.
func (d GraphResolveDepths) Validate(limit int) error {
	if limit <= 0 || limit > MaxResolveDepth {
		limit = MaxResolveDepth
	}
	for _, c := range []struct {
		name  string
		value int
	}{
		{"dataTypeResolveDepth", d.DataTypeResolveDepth},
		{"propertyTypeResolveDepth", d.PropertyTypeResolveDepth},
		{"linkTypeResolveDepth", d.LinkTypeResolveDepth},
		{"entityTypeResolveDepth", d.EntityTypeResolveDepth},
		{"linkResolveDepth", d.LinkResolveDepth},
		{"linkTargetEntityResolveDepth", d.LinkTargetEntityResolveDepth},
	} {
		if c.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", c.name, c.value)
		}
		if c.value > limit {
			return fmt.Errorf("%s must be at most %d, got %d", c.name, limit, c.value)
		}
	}
	return nil
}
