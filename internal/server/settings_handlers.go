// internal/server/settings_handlers.go
package server

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	htmlparser "golang.org/x/net/html"

	"vitrine/internal/content"
	"vitrine/internal/schema"
)

// editableSettings is the whitelist of keys the settings form may write.
var editableSettings = map[string]string{
	"site_title":       "string",
	"footer_text":      "string",
	"meta_description": "string",
	"tracking_code":    "html",
	"contact_email":    "string",
	"default_lat":      "float",
	"default_lng":      "float",
	"import_interval":  "int",
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.store.AllSettings(r.Context())
		if err != nil {
			s.logger.Printf("Error loading settings: %v", err)
			settings = make(map[string]string)
		}
		token := s.csrf.Token(w, r)
		data := adminData{
			Title:      "Réglages",
			Active:     "settings",
			CSRFToken:  token,
			CSRFMeta:   s.csrf.GetMeta(token),
			Categories: content.Categories(),
			Data:       settingsData{Settings: settings},
		}
		if err := s.renderTemplate(w, r, "admin/settings.html", data); err != nil {
			s.logger.Printf("Error rendering settings: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}

	case http.MethodPost:
		if !s.csrf.Validate(w, r) {
			return
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		for key, value := range req {
			valueType, ok := editableSettings[key]
			if !ok {
				RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown setting %q", key))
				return
			}
			if valueType == "html" {
				sanitized, err := validateTrackingCode(value)
				if err != nil {
					RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid tracking code: %v", err))
					return
				}
				value = sanitized
				valueType = "string"
			}
			if err := s.store.UpdateSetting(r.Context(), key, value, valueType); err != nil {
				s.logger.Printf("Error updating setting %s: %v", key, err)
				RespondWithError(w, http.StatusInternalServerError, "Failed to save settings")
				return
			}
		}
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleItemsPage renders the per-category management page of the admin.
func (s *Server) handleItemsPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	categoryID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/items/"), "/")
	info, err := content.Lookup(categoryID)
	if err != nil {
		s.handle404(w, r)
		return
	}
	fields, err := schema.ForCategory(categoryID)
	if err != nil {
		s.handle404(w, r)
		return
	}

	token := s.csrf.Token(w, r)
	data := adminData{
		Title:      info.Label,
		Active:     info.ID,
		CSRFToken:  token,
		CSRFMeta:   s.csrf.GetMeta(token),
		Categories: content.Categories(),
		Data: itemsPageData{
			Category: info,
			Fields:   fields,
		},
	}
	if err := s.renderTemplate(w, r, "admin/items.html", data); err != nil {
		s.logger.Printf("Error rendering items page for %s: %v", categoryID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// validateTrackingCode sanitizes analytics snippet HTML down to external
// script tags and tracking pixels. Inline JavaScript is rejected outright.
func validateTrackingCode(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}

	doc, err := htmlparser.Parse(strings.NewReader(code))
	if err != nil {
		return "", fmt.Errorf("invalid HTML: %w", err)
	}

	var buf strings.Builder
	if err := sanitizeTrackingNode(doc, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeTrackingNode(n *htmlparser.Node, buf *strings.Builder) error {
	switch n.Type {
	case htmlparser.ElementNode:
		switch strings.ToLower(n.Data) {
		case "script":
			return sanitizeScriptTag(n, buf)
		case "img":
			return sanitizeImgTag(n, buf)
		case "html", "head", "body":
			// Wrapper elements added by the parser; descend.
		default:
			// Drop everything else.
			return nil
		}
	case htmlparser.TextNode:
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := sanitizeTrackingNode(c, buf); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeScriptTag(n *htmlparser.Node, buf *strings.Builder) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == htmlparser.TextNode && strings.TrimSpace(c.Data) != "" {
			return fmt.Errorf("script tags must have a src attribute (inline JavaScript not allowed)")
		}
	}

	var src string
	var async, deferred bool
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "src":
			if err := validateTrackingURL(attr.Val); err != nil {
				return fmt.Errorf("invalid script src URL: %w", err)
			}
			src = attr.Val
		case "async":
			async = true
		case "defer":
			deferred = true
		}
	}
	if src == "" {
		return fmt.Errorf("script tags must have a src attribute (inline JavaScript not allowed)")
	}

	buf.WriteString(`<script src="`)
	buf.WriteString(html.EscapeString(src))
	buf.WriteString(`"`)
	if async {
		buf.WriteString(` async=""`)
	}
	if deferred {
		buf.WriteString(` defer=""`)
	}
	buf.WriteString("></script>")
	return nil
}

func sanitizeImgTag(n *htmlparser.Node, buf *strings.Builder) error {
	var src, width, height, alt string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "src":
			if err := validateTrackingURL(attr.Val); err != nil {
				return fmt.Errorf("invalid img src URL: %w", err)
			}
			src = attr.Val
		case "width":
			width = attr.Val
		case "height":
			height = attr.Val
		case "alt":
			alt = attr.Val
		}
	}
	if src == "" {
		return nil
	}

	buf.WriteString(`<img src="`)
	buf.WriteString(html.EscapeString(src))
	buf.WriteString(`"`)
	if width != "" {
		buf.WriteString(` width="` + html.EscapeString(width) + `"`)
	}
	if height != "" {
		buf.WriteString(` height="` + html.EscapeString(height) + `"`)
	}
	if alt != "" {
		buf.WriteString(` alt="` + html.EscapeString(alt) + `"`)
	}
	buf.WriteString(">")
	return nil
}

func validateTrackingURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("only http and https URLs are allowed")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must be absolute")
	}
	return nil
}
