// internal/server/types.go
package server

import (
	"html/template"

	"vitrine/internal/content"
	"vitrine/internal/schema"
)

// siteData is the shared payload for all public pages.
type siteData struct {
	SiteTitle    string
	FooterText   string
	MetaDesc     string
	TrackingCode template.HTML
	Categories   []content.CategoryInfo
}

type indexData struct {
	siteData
	Highlights map[string][]content.Item
}

type categoryData struct {
	siteData
	Category content.CategoryInfo
	Items    []content.Item
}

type itemData struct {
	siteData
	Category content.CategoryInfo
	Item     content.Item
	Fields   []fieldValue
}

// fieldValue pairs a schema field with its resolved value for display.
type fieldValue struct {
	Field schema.Field
	Value interface{}
}

type loginData struct {
	Error     string
	CSRFToken string
	CSRFMeta  template.HTML
}

type adminData struct {
	Title      string
	Active     string
	CSRFToken  string
	CSRFMeta   template.HTML
	Categories []content.CategoryInfo
	Data       interface{}
}

type dashboardData struct {
	Stats map[string]int
	Total int
}

type itemsPageData struct {
	Category content.CategoryInfo
	Fields   []schema.Field
}

type settingsData struct {
	Settings map[string]string
	Saved    bool
	Error    string
}
