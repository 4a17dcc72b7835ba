// internal/content/service.go
package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"vitrine/internal/store"
)

// Backend is the slice of the record store the aggregation service uses.
// It is satisfied by *store.Store; tests substitute fault-injecting
// implementations.
type Backend interface {
	Select(ctx context.Context, table string, filter store.Filter, order store.Order) ([]store.Record, error)
	Get(ctx context.Context, table, id string) (store.Record, error)
	Insert(ctx context.Context, table string, row store.Record) error
	Update(ctx context.Context, table, id string, patch store.Record) error
	Delete(ctx context.Context, table, id string) error
}

// Tables that predate the status / updated_at columns. Their rows default
// to published and sort by name.
var (
	tablesWithoutStatus  = map[string]bool{"team_members": true}
	tablesWithoutUpdated = map[string]bool{"team_members": true}
)

// ErrStatusNotSupported is returned when a status change targets a table
// that has no status column.
var ErrStatusNotSupported = errors.New("status not supported for this category")

// Stats are the per-category status counts shown on the dashboard.
type Stats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Draft     int `json:"draft"`
	Archived  int `json:"archived"`
}

// Service aggregates heterogeneous table rows into canonical items and
// routes writes back to the correct table.
type Service struct {
	db     Backend
	logger *log.Logger
}

func NewService(db Backend, logger *log.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ListByCategory returns every item of a category, across all its backing
// tables, newest first. A failing table contributes nothing and is logged;
// the call itself only fails for an unknown category.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Item, error) {
	return s.list(ctx, category, false)
}

// ListPublished is ListByCategory restricted to published rows. The
// status filter is applied in the table query, not after the fact, so the
// public site never sees drafts even transiently.
func (s *Service) ListPublished(ctx context.Context, category string) ([]Item, error) {
	return s.list(ctx, category, true)
}

func (s *Service) list(ctx context.Context, category string, publishedOnly bool) ([]Item, error) {
	info, err := Lookup(category)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, m := range info.Tables {
		filter := store.Filter{}
		if len(m.TypeFilter) > 0 {
			filter["type"] = m.TypeFilter
		}
		if publishedOnly && !tablesWithoutStatus[m.Table] {
			filter["status"] = StatusPublished
		}

		order := store.Order{Column: "updated_at", Desc: true}
		if tablesWithoutUpdated[m.Table] {
			order = store.Order{Column: "name"}
		}

		recs, err := s.db.Select(ctx, m.Table, filter, order)
		if err != nil {
			// Partial-failure tolerance: one broken table must not blank
			// out the rest of the category.
			s.logger.Printf("content: skipping table %s for category %s: %v", m.Table, category, err)
			continue
		}
		for _, rec := range recs {
			items = append(items, Normalize(rec, category, m.Table))
		}
	}

	sortItems(items)
	return items, nil
}

// sortItems orders by updated_at descending. Equal timestamps break by id
// ascending; the original left this tie accidental, here it is fixed.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// Search filters a category's items by a case-insensitive substring match
// over name, description and type. A blank term returns the full list.
func (s *Service) Search(ctx context.Context, category, term string) ([]Item, error) {
	items, err := s.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return items, nil
	}

	var out []Item
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), term) ||
			strings.Contains(strings.ToLower(item.Description), term) ||
			strings.Contains(strings.ToLower(item.Type), term) {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetItem loads a single item by id, trying each of the category's
// backing tables in mapping order.
func (s *Service) GetItem(ctx context.Context, category, id string) (Item, error) {
	info, err := Lookup(category)
	if err != nil {
		return Item{}, err
	}

	for _, m := range info.Tables {
		rec, err := s.db.Get(ctx, m.Table, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return Item{}, err
		}
		if len(m.TypeFilter) > 0 {
			t, _ := store.NullableString(rec, "type")
			if !containsString(m.TypeFilter, t) {
				continue
			}
		}
		return Normalize(rec, category, m.Table), nil
	}
	return Item{}, fmt.Errorf("item %q in category %s: %w", id, category, store.ErrNotFound)
}

// Stats counts a category's items by status.
func (s *Service) Stats(ctx context.Context, category string) (Stats, error) {
	items, err := s.ListByCategory(ctx, category)
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	for _, item := range items {
		st.Total++
		switch item.Status {
		case StatusPublished:
			st.Published++
		case StatusDraft:
			st.Draft++
		case StatusArchived:
			st.Archived++
		}
	}
	return st, nil
}

// GlobalStats returns the published count per category. A category whose
// stats cannot be fetched degrades to 0 instead of failing the call.
func (s *Service) GlobalStats(ctx context.Context) map[string]int {
	out := make(map[string]int, len(categoryOrder))
	for _, category := range categoryOrder {
		st, err := s.Stats(ctx, category)
		if err != nil {
			s.logger.Printf("content: stats for %s unavailable: %v", category, err)
			out[category] = 0
			continue
		}
		out[category] = st.Published
	}
	return out
}

// UpdateStatus changes a single row's status and touches updated_at.
// Store errors propagate: status changes must never fail silently.
func (s *Service) UpdateStatus(ctx context.Context, itemID, newStatus, table string) error {
	if !ValidStatus(newStatus) {
		return fmt.Errorf("invalid status %q", newStatus)
	}
	if tablesWithoutStatus[table] {
		return fmt.Errorf("%w: %s", ErrStatusNotSupported, table)
	}
	return s.db.Update(ctx, table, itemID, store.Record{
		"status":     newStatus,
		"updated_at": time.Now().UTC(),
	})
}

// DeleteItem removes a single row from the named table.
func (s *Service) DeleteItem(ctx context.Context, itemID, table string) error {
	return s.db.Delete(ctx, table, itemID)
}

// Create inserts a new row into the category's primary table, minting an
// id when the caller supplies none.
func (s *Service) Create(ctx context.Context, category string, row store.Record) (string, error) {
	info, err := Lookup(category)
	if err != nil {
		return "", err
	}

	id, _ := store.NullableString(row, "id")
	if id == "" {
		id = uuid.NewString()
		row["id"] = id
	}
	if err := s.db.Insert(ctx, info.Primary, row); err != nil {
		return "", err
	}
	return id, nil
}

// PrimaryTable returns the canonical write target for a category.
func (s *Service) PrimaryTable(category string) (string, error) {
	info, err := Lookup(category)
	if err != nil {
		return "", err
	}
	return info.Primary, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
