// internal/content/item.go
package content

import (
	"strconv"
	"strings"
	"time"

	"vitrine/internal/store"
)

// Item statuses. Rows without a status column default to published: those
// tables (team_members) are always publicly visible.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// Item is the canonical content shape every category normalizes to,
// independent of its source table's column names. ID, Name, Category and
// Status are never empty on items returned by the aggregation layer.
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type,omitempty"`
	Category      string    `json:"category"`
	Status        string    `json:"status"`
	Description   string    `json:"description,omitempty"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
	ViewCount     int       `json:"viewCount"`
	Table         string    `json:"-"` // backing table the row came from
	Raw           store.Record `json:"-"`
}

// Field name fallback chains. The first present, non-empty source field
// wins; order matters.
var (
	nameFields  = []string{"name", "title"}
	descFields  = []string{"description", "summary", "content"}
	imageFields = []string{"featured_image", "photo", "image_url"}
	timeFields  = []string{"updated_at", "created_at"}
)

// Normalize maps one raw row from a backing table onto the canonical
// item shape, resolving every absent source value to its documented
// default. The category tag is assigned here, not read from the row.
func Normalize(rec store.Record, category, table string) Item {
	item := Item{
		ID:       stringField(rec, "id"),
		Name:     firstString(rec, nameFields),
		Type:     stringField(rec, "type"),
		Category: category,
		Status:   StatusPublished,
		Table:    table,
		Raw:      rec,
	}

	if s, ok := store.NullableString(rec, "status"); ok && s != "" {
		item.Status = s
	}
	item.Description = firstString(rec, descFields)
	item.FeaturedImage = firstString(rec, imageFields)
	item.UpdatedAt = firstTime(rec, timeFields)
	item.ViewCount = intField(rec, "view_count")

	if item.Name == "" {
		item.Name = "(untitled)"
	}

	return item
}

func stringField(rec store.Record, key string) string {
	s, _ := store.NullableString(rec, key)
	return s
}

func firstString(rec store.Record, keys []string) string {
	for _, key := range keys {
		if s, ok := store.NullableString(rec, key); ok && s != "" {
			return s
		}
	}
	return ""
}

func intField(rec store.Record, key string) int {
	switch v := rec[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// timeLayouts covers the shapes sqlite hands back for timestamp columns.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func firstTime(rec store.Record, keys []string) time.Time {
	for _, key := range keys {
		switch v := rec[key].(type) {
		case time.Time:
			if !v.IsZero() {
				return v
			}
		case string:
			if t := parseTime(v); !t.IsZero() {
				return t
			}
		}
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
