// internal/server/public_handlers.go
package server

import (
	"html/template"
	"net/http"
	"strings"

	"vitrine/internal/content"
	"vitrine/internal/schema"
)

// newSiteData assembles the shared public page payload from settings.
// Missing settings degrade to empty strings rather than failing the page.
func (s *Server) newSiteData(r *http.Request) siteData {
	ctx := r.Context()
	data := siteData{
		Categories: content.Categories(),
	}
	data.SiteTitle, _ = s.store.GetSetting(ctx, "site_title")
	data.FooterText, _ = s.store.GetSetting(ctx, "footer_text")
	data.MetaDesc, _ = s.store.GetSetting(ctx, "meta_description")
	if code, err := s.store.GetSetting(ctx, "tracking_code"); err == nil {
		data.TrackingCode = template.HTML(code)
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := indexData{
		siteData:   s.newSiteData(r),
		Highlights: make(map[string][]content.Item),
	}

	for _, id := range []string{"events", "activities", "accommodations"} {
		items, err := s.content.ListPublished(r.Context(), id)
		if err != nil {
			s.logger.Printf("Error listing %s for index: %v", id, err)
			continue
		}
		if len(items) > 4 {
			items = items[:4]
		}
		data.Highlights[id] = items
	}

	if err := s.renderTemplate(w, r, "index.html", data); err != nil {
		s.logger.Printf("Error rendering index: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleCategoryPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	categoryID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/c/"), "/")
	info, err := content.Lookup(categoryID)
	if err != nil {
		s.handle404(w, r)
		return
	}

	items, err := s.content.ListPublished(r.Context(), categoryID)
	if err != nil {
		s.logger.Printf("Error listing category %s: %v", categoryID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := categoryData{
		siteData: s.newSiteData(r),
		Category: info,
		Items:    items,
	}
	if err := s.renderTemplate(w, r, "category.html", data); err != nil {
		s.logger.Printf("Error rendering category %s: %v", categoryID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleItemPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// /item/{category}/{id}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/item/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		s.handle404(w, r)
		return
	}
	categoryID, itemID := parts[0], parts[1]

	info, err := content.Lookup(categoryID)
	if err != nil {
		s.handle404(w, r)
		return
	}

	item, err := s.content.GetItem(r.Context(), categoryID, itemID)
	if err != nil {
		s.handle404(w, r)
		return
	}
	// Only published content is public.
	if item.Status != content.StatusPublished {
		s.handle404(w, r)
		return
	}

	if err := s.store.IncrementViews(r.Context(), item.Table, item.ID); err != nil {
		s.logger.Printf("Error counting view for %s/%s: %v", item.Table, item.ID, err)
	}

	fields, _ := schema.ForCategory(categoryID)
	values := make([]fieldValue, 0, len(fields))
	for _, f := range fields {
		values = append(values, fieldValue{Field: f, Value: schema.ReadValue(item.Raw, f)})
	}

	data := itemData{
		siteData: s.newSiteData(r),
		Category: info,
		Item:     item,
		Fields:   values,
	}
	if err := s.renderTemplate(w, r, "item.html", data); err != nil {
		s.logger.Printf("Error rendering item %s/%s: %v", categoryID, itemID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.PingContext(r.Context()); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
