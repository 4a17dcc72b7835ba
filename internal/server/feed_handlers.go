// internal/server/feed_handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type addFeedRequest struct {
	URL string `json:"url"`
}

// handlePartnerFeeds dispatches /admin/api/partner-feeds[/{id}|/refresh].
func (s *Server) handlePartnerFeeds(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/partner-feeds"), "/")

	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			s.listPartnerFeeds(w, r)
		case http.MethodPost:
			s.addPartnerFeed(w, r)
		default:
			RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case rest == "refresh":
		if r.Method != http.MethodPost {
			RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !s.csrf.Validate(w, r) {
			return
		}
		if err := s.feeds.ImportAll(r.Context()); err != nil {
			s.logger.Printf("Error refreshing partner feeds: %v", err)
			RespondWithError(w, http.StatusInternalServerError, "Import failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		if r.Method != http.MethodDelete {
			RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if !s.csrf.Validate(w, r) {
			return
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid feed ID")
			return
		}
		if err := s.feeds.DeleteFeed(r.Context(), id); err != nil {
			s.logger.Printf("Error deleting partner feed %d: %v", id, err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to delete feed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) listPartnerFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.feeds.ListFeeds(r.Context())
	if err != nil {
		s.logger.Printf("Error listing partner feeds: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list feeds")
		return
	}
	RespondWithJSON(w, http.StatusOK, feeds)
}

func (s *Server) addPartnerFeed(w http.ResponseWriter, r *http.Request) {
	if !s.csrf.Validate(w, r) {
		return
	}
	var req addFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		RespondWithError(w, http.StatusBadRequest, "Feed URL is required")
		return
	}
	if err := s.feeds.AddFeed(r.Context(), req.URL); err != nil {
		s.logger.Printf("Error adding partner feed %s: %v", req.URL, err)
		RespondWithError(w, http.StatusBadRequest, "Could not validate feed")
		return
	}
	RespondWithJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
