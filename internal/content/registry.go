// internal/content/registry.go
package content

import (
	"errors"
	"fmt"
)

var ErrUnknownCategory = errors.New("unknown category")

// TableMapping binds one backing table to a category. TypeFilter, when
// non-empty, restricts rows to those whose type column matches; this is
// how several categories share the places table without overlapping.
type TableMapping struct {
	Table      string
	TypeFilter []string
}

// CategoryInfo is the static routing record for one content category.
type CategoryInfo struct {
	ID      string
	Label   string
	Icon    string
	Tables  []TableMapping
	Primary string // the dominant write target for category-wide operations
}

// registry is the single source of truth for category -> table routing.
// It is fixed at compile time; nothing mutates it at runtime.
var registry = map[string]CategoryInfo{
	"accommodations": {
		ID: "accommodations", Label: "Hébergements", Icon: "bed",
		Tables:  []TableMapping{{Table: "accommodations"}},
		Primary: "accommodations",
	},
	"dining": {
		ID: "dining", Label: "Restauration", Icon: "utensils",
		Tables:  []TableMapping{{Table: "places", TypeFilter: []string{"restaurant", "cafe", "bar"}}},
		Primary: "places",
	},
	"activities": {
		ID: "activities", Label: "Activités", Icon: "compass",
		Tables:  []TableMapping{{Table: "places", TypeFilter: []string{"activity", "leisure", "outdoor"}}},
		Primary: "places",
	},
	"heritage": {
		ID: "heritage", Label: "Patrimoine", Icon: "landmark",
		Tables:  []TableMapping{{Table: "places", TypeFilter: []string{"museum", "monument", "heritage"}}},
		Primary: "places",
	},
	"walks": {
		ID: "walks", Label: "Randonnées", Icon: "map",
		Tables:  []TableMapping{{Table: "walks"}},
		Primary: "walks",
	},
	"events": {
		ID: "events", Label: "Agenda", Icon: "calendar",
		Tables:  []TableMapping{{Table: "events"}},
		Primary: "events",
	},
	"team": {
		ID: "team", Label: "L'équipe", Icon: "users",
		Tables:  []TableMapping{{Table: "team_members"}},
		Primary: "team_members",
	},
	"pages": {
		ID: "pages", Label: "Pages", Icon: "file",
		Tables:  []TableMapping{{Table: "pages"}},
		Primary: "pages",
	},
}

// categoryOrder fixes the navigation and GlobalStats ordering.
var categoryOrder = []string{
	"accommodations", "dining", "activities", "heritage",
	"walks", "events", "team", "pages",
}

// Lookup resolves a category identifier. Unrecognized identifiers are a
// caller error and fail immediately.
func Lookup(category string) (CategoryInfo, error) {
	info, ok := registry[category]
	if !ok {
		return CategoryInfo{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return info, nil
}

// Categories returns every known category in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(categoryOrder))
	for _, id := range categoryOrder {
		out = append(out, registry[id])
	}
	return out
}

// IsKnown reports whether a category identifier exists.
func IsKnown(category string) bool {
	_, ok := registry[category]
	return ok
}
