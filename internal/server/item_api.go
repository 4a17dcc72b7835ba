// internal/server/item_api.go
// Admin JSON API for category item management.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"vitrine/internal/content"
	"vitrine/internal/editor"
	"vitrine/internal/schema"
	"vitrine/internal/store"
)

type createItemRequest struct {
	Values map[string]any `json:"values"`
}

type updateItemRequest struct {
	Changes    map[string]any `json:"changes"`
	ListAdd    []listAddOp    `json:"listAdd,omitempty"`
	ListRemove []listRemoveOp `json:"listRemove,omitempty"`
}

type listAddOp struct {
	Field string `json:"field"`
	Entry string `json:"entry"`
}

type listRemoveOp struct {
	Field string `json:"field"`
	Index int    `json:"index"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type itemResponse struct {
	Item     content.Item   `json:"item"`
	Values   map[string]any `json:"values,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// handleItemAPI dispatches /admin/api/items/{category}[/{id}[/status]].
func (s *Server) handleItemAPI(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/items/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		RespondWithError(w, http.StatusBadRequest, "Category required")
		return
	}
	categoryID := parts[0]
	if !content.IsKnown(categoryID) {
		RespondWithError(w, http.StatusNotFound, "Unknown category")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.listItems(w, r, categoryID)
		case http.MethodPost:
			s.createItem(w, r, categoryID)
		default:
			RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case len(parts) == 2:
		itemID := parts[1]
		switch r.Method {
		case http.MethodGet:
			s.getItem(w, r, categoryID, itemID)
		case http.MethodPut:
			s.updateItem(w, r, categoryID, itemID)
		case http.MethodDelete:
			s.deleteItem(w, r, categoryID, itemID)
		default:
			RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case len(parts) == 3 && parts[2] == "status":
		if r.Method != http.MethodPut {
			RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.updateItemStatus(w, r, categoryID, parts[1])

	default:
		RespondWithError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request, categoryID string) {
	term := r.URL.Query().Get("q")

	var (
		items []content.Item
		err   error
	)
	if term != "" {
		items, err = s.content.Search(r.Context(), categoryID, term)
	} else {
		items, err = s.content.ListByCategory(r.Context(), categoryID)
	}
	if err != nil {
		s.logger.Printf("Error listing items for %s: %v", categoryID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list items")
		return
	}
	if items == nil {
		items = []content.Item{}
	}
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request, categoryID string) {
	if !s.csrf.Validate(w, r) {
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields, err := schema.ForCategory(categoryID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Unknown category")
		return
	}

	row := schema.BuildPatch(fields, req.Values)
	s.resolveCoordinates(r, categoryID, req.Values, row)

	id, err := s.content.Create(r.Context(), categoryID, row)
	if err != nil {
		s.logger.Printf("Error creating item in %s: %v", categoryID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create item")
		return
	}

	item, err := s.content.GetItem(r.Context(), categoryID, id)
	if err != nil {
		s.logger.Printf("Error reading back created item %s: %v", id, err)
		RespondWithJSON(w, http.StatusCreated, map[string]string{"id": id})
		return
	}
	RespondWithJSON(w, http.StatusCreated, itemResponse{Item: item})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request, categoryID, itemID string) {
	item, err := s.content.GetItem(r.Context(), categoryID, itemID)
	if err != nil {
		s.respondItemError(w, categoryID, itemID, err)
		return
	}

	sess, err := editor.Open(item)
	if err != nil {
		s.logger.Printf("Error opening editor for %s/%s: %v", categoryID, itemID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load item")
		return
	}
	defer sess.Close()

	values := make(map[string]any, len(sess.Fields()))
	for _, f := range sess.Fields() {
		if v, ok := sess.Value(f.Name); ok {
			values[f.Name] = v
		}
	}
	RespondWithJSON(w, http.StatusOK, itemResponse{Item: item, Values: values})
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request, categoryID, itemID string) {
	if !s.csrf.Validate(w, r) {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := s.content.GetItem(r.Context(), categoryID, itemID)
	if err != nil {
		s.respondItemError(w, categoryID, itemID, err)
		return
	}

	sess, err := editor.Open(item)
	if err != nil {
		s.logger.Printf("Error opening editor for %s/%s: %v", categoryID, itemID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load item")
		return
	}

	var warnings []string
	for _, applyErr := range sess.Apply(req.Changes) {
		warnings = append(warnings, applyErr.Error())
	}
	for _, op := range req.ListAdd {
		if err := sess.AddListEntry(op.Field, op.Entry); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	for _, op := range req.ListRemove {
		if err := sess.RemoveListEntry(op.Field, op.Index); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	s.geocodeSession(r, categoryID, req.Changes, sess)

	saved, err := sess.Save(r.Context(), s.store)
	if err != nil {
		s.logger.Printf("Error saving item %s/%s: %v", categoryID, itemID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save item")
		return
	}

	RespondWithJSON(w, http.StatusOK, itemResponse{Item: saved, Warnings: warnings})
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request, categoryID, itemID string) {
	if !s.csrf.Validate(w, r) {
		return
	}

	item, err := s.content.GetItem(r.Context(), categoryID, itemID)
	if err != nil {
		s.respondItemError(w, categoryID, itemID, err)
		return
	}
	if err := s.content.DeleteItem(r.Context(), item.ID, item.Table); err != nil {
		s.logger.Printf("Error deleting item %s/%s: %v", categoryID, itemID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) updateItemStatus(w http.ResponseWriter, r *http.Request, categoryID, itemID string) {
	if !s.csrf.Validate(w, r) {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !content.ValidStatus(req.Status) {
		RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	item, err := s.content.GetItem(r.Context(), categoryID, itemID)
	if err != nil {
		s.respondItemError(w, categoryID, itemID, err)
		return
	}
	if err := s.content.UpdateStatus(r.Context(), item.ID, req.Status, item.Table); err != nil {
		if errors.Is(err, content.ErrStatusNotSupported) {
			RespondWithError(w, http.StatusBadRequest, "Category does not support status changes")
			return
		}
		s.logger.Printf("Error updating status of %s/%s: %v", categoryID, itemID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"id": item.ID, "status": req.Status})
}

// handleFieldsAPI returns the editable field schema of a category.
func (s *Server) handleFieldsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	categoryID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/fields/"), "/")
	fields, err := schema.ForCategory(categoryID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Unknown category")
		return
	}
	RespondWithJSON(w, http.StatusOK, fields)
}

// handleStatsAPI returns per-category status breakdowns.
func (s *Server) handleStatsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	out := make(map[string]content.Stats)
	for _, info := range content.Categories() {
		stats, err := s.content.Stats(r.Context(), info.ID)
		if err != nil {
			s.logger.Printf("Error getting stats for %s: %v", info.ID, err)
			continue
		}
		out[info.ID] = stats
	}
	RespondWithJSON(w, http.StatusOK, out)
}

func (s *Server) respondItemError(w http.ResponseWriter, categoryID, itemID string, err error) {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, content.ErrUnknownCategory) {
		RespondWithError(w, http.StatusNotFound, "Item not found")
		return
	}
	s.logger.Printf("Error loading item %s/%s: %v", categoryID, itemID, err)
	RespondWithError(w, http.StatusInternalServerError, "Failed to load item")
}

// resolveCoordinates fills lat/lng on a new row when an address was given
// without explicit coordinates.
func (s *Server) resolveCoordinates(r *http.Request, categoryID string, values map[string]any, row store.Record) {
	if s.geocoder == nil {
		return
	}
	addr, _ := values["address"].(string)
	if addr == "" {
		return
	}
	if _, hasLat := values["lat"]; hasLat {
		return
	}
	if _, hasLng := values["lng"]; hasLng {
		return
	}
	if _, ok := schema.FieldByName(categoryID, "lat"); !ok {
		return
	}
	coord, resolved := s.geocoder.Resolve(r.Context(), addr)
	if !resolved {
		s.logger.Printf("Geocoding fell back to default for %q", addr)
	}
	row["lat"] = coord.Lat
	row["lng"] = coord.Lng
}

// geocodeSession does the same for an open editor session on update.
func (s *Server) geocodeSession(r *http.Request, categoryID string, changes map[string]any, sess *editor.Session) {
	if s.geocoder == nil {
		return
	}
	addr, _ := changes["address"].(string)
	if addr == "" {
		return
	}
	if _, hasLat := changes["lat"]; hasLat {
		return
	}
	if _, hasLng := changes["lng"]; hasLng {
		return
	}
	if _, ok := schema.FieldByName(categoryID, "lat"); !ok {
		return
	}
	coord, resolved := s.geocoder.Resolve(r.Context(), addr)
	if !resolved {
		s.logger.Printf("Geocoding fell back to default for %q", addr)
	}
	if err := sess.SetField("lat", coord.Lat); err != nil {
		s.logger.Printf("Error setting resolved latitude: %v", err)
	}
	if err := sess.SetField("lng", coord.Lng); err != nil {
		s.logger.Printf("Error setting resolved longitude: %v", err)
	}
}
